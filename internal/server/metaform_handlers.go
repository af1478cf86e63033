package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metaformlabs/metaform-server/internal/schema"
)

// metaformSummary is the listing shape for a metaform.
type metaformSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (s *Server) listMetaformsHandler(w http.ResponseWriter, r *http.Request) {
	metaforms := s.schemas.List()
	summaries := make([]metaformSummary, 0, len(metaforms))
	for _, m := range metaforms {
		summaries = append(summaries, metaformSummary{ID: m.ID, Title: m.Title})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getMetaformHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}
	writeJSON(w, http.StatusOK, metaform)
}

// metaformFromRequest resolves the {metaformId} URL parameter, writing a 404
// and returning nil when the form is unknown.
func (s *Server) metaformFromRequest(w http.ResponseWriter, r *http.Request) *schema.Metaform {
	id := chi.URLParam(r, "metaformId")
	metaform := s.schemas.Get(id)
	if metaform == nil {
		writeError(w, http.StatusNotFound, "metaform not found")
		return nil
	}
	return metaform
}

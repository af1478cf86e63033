package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/metaformlabs/metaform-server/internal/db/filter"
	"github.com/metaformlabs/metaform-server/internal/db/models"
	"github.com/metaformlabs/metaform-server/internal/db/service"
	"github.com/metaformlabs/metaform-server/internal/schema"
)

// replyPayload is the request body for reply creation and update.
type replyPayload struct {
	Data map[string]any `json:"data"`
}

// replyResponse is the wire shape of a reply with its reassembled values.
type replyResponse struct {
	ID             string         `json:"id"`
	MetaformID     string         `json:"metaformId"`
	UserID         string         `json:"userId"`
	CreatedAt      time.Time      `json:"createdAt"`
	ModifiedAt     time.Time      `json:"modifiedAt"`
	Revision       *time.Time     `json:"revision,omitempty"`
	Data           map[string]any `json:"data"`
	RejectedFields []string       `json:"rejectedFields,omitempty"`
}

func (s *Server) createReplyHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}

	var payload replyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	user := userID(r)

	// Supersede the current live reply, if any. The old reply keeps its
	// field rows untouched and becomes an immutable revision.
	live, err := s.replies.FindLive(metaform.ID, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to find live reply: %v", err))
		return
	}
	if live != nil {
		if err := s.replies.ConvertToRevision(live); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to supersede reply: %v", err))
			return
		}
	}

	reply, err := s.replies.Create(metaform.ID, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create reply: %v", err))
		return
	}

	rejected, err := s.writeFields(metaform, reply, payload.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store reply fields: %v", err))
		return
	}

	response, err := s.buildReplyResponse(metaform, reply, rejected)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read reply: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (s *Server) listRepliesHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}

	opts := service.ListOptions{
		Filters:          filter.Parse(metaform, strings.Join(r.URL.Query()["fields"], ",")),
		UserID:           r.URL.Query().Get("userId"),
		IncludeRevisions: r.URL.Query().Get("includeRevisions") == "true",
	}
	for param, target := range map[string]**time.Time{
		"createdBefore":  &opts.CreatedBefore,
		"createdAfter":   &opts.CreatedAfter,
		"modifiedBefore": &opts.ModifiedBefore,
		"modifiedAfter":  &opts.ModifiedAfter,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", param, err))
			return
		}
		*target = &parsed
	}

	replies, err := s.query.List(metaform.ID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list replies: %v", err))
		return
	}

	responses := make([]replyResponse, 0, len(replies))
	for i := range replies {
		response, err := s.buildReplyResponse(metaform, &replies[i], nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read reply: %v", err))
			return
		}
		responses = append(responses, response)
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) getReplyHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}
	reply := s.replyFromRequest(w, r, metaform)
	if reply == nil {
		return
	}

	response, err := s.buildReplyResponse(metaform, reply, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read reply: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) updateReplyHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}
	reply := s.replyFromRequest(w, r, metaform)
	if reply == nil {
		return
	}
	if reply.Revision != nil {
		writeError(w, http.StatusConflict, "reply is a revision and cannot be modified")
		return
	}

	var payload replyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	rejected, err := s.writeFields(metaform, reply, payload.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store reply fields: %v", err))
		return
	}
	if err := s.replies.Touch(reply); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to update reply: %v", err))
		return
	}

	response, err := s.buildReplyResponse(metaform, reply, rejected)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read reply: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) deleteReplyHandler(w http.ResponseWriter, r *http.Request) {
	metaform := s.metaformFromRequest(w, r)
	if metaform == nil {
		return
	}
	reply := s.replyFromRequest(w, r, metaform)
	if reply == nil {
		return
	}

	if err := s.fields.DeleteReply(reply); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete reply: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// replyFromRequest resolves the {replyId} URL parameter within a metaform,
// writing a 404 and returning nil when the reply is unknown.
func (s *Server) replyFromRequest(w http.ResponseWriter, r *http.Request, metaform *schema.Metaform) *models.Reply {
	id := chi.URLParam(r, "replyId")
	reply, err := s.replies.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get reply: %v", err))
		return nil
	}
	if reply == nil || reply.MetaformID != metaform.ID {
		writeError(w, http.StatusNotFound, "reply not found")
		return nil
	}
	return reply
}

// writeFields stores the submitted values. Each field is an independent unit
// of work: a value the store cannot represent is reported in the returned
// rejected list without aborting the sibling writes.
func (s *Server) writeFields(metaform *schema.Metaform, reply *models.Reply, data map[string]any) ([]string, error) {
	var rejected []string

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := data[name]

		field := metaform.FindField(name)
		if field == nil {
			s.logger.Warn("ignoring value for undeclared field", "field", name, "metaform", metaform.ID)
			continue
		}
		if metaform.IsMetaField(name) {
			// Meta fields are computed, never written.
			continue
		}

		switch field.Type {
		case schema.FieldTypeTable:
			rows, ok := toTableRows(value)
			if !ok {
				rejected = append(rejected, name)
				continue
			}
			if err := s.fields.SetTableValue(reply, name, rows); err != nil {
				return nil, err
			}
		case schema.FieldTypeFiles:
			ids, ok := toStringSlice(value)
			if !ok {
				rejected = append(rejected, name)
				continue
			}
			if err := s.fields.SetAttachments(reply, name, ids); err != nil {
				return nil, err
			}
		default:
			category := schema.ResolveStorageType(field.Type)
			switch category {
			case schema.StorageTypeNone:
				continue
			case schema.StorageTypeList:
				items, ok := toStringSlice(value)
				if !ok {
					rejected = append(rejected, name)
					continue
				}
				if err := s.fields.SetListValue(reply, name, items); err != nil {
					return nil, err
				}
			default:
				result, err := s.fields.SetValue(reply, name, value)
				if err != nil {
					return nil, err
				}
				if result == service.SetResultUnsupportedType {
					rejected = append(rejected, name)
				}
			}
		}
	}
	return rejected, nil
}

// buildReplyResponse reassembles a reply's values according to the schema.
func (s *Server) buildReplyResponse(metaform *schema.Metaform, reply *models.Reply, rejected []string) (replyResponse, error) {
	data := make(map[string]any)
	for _, field := range metaform.Fields() {
		value, err := s.fields.GetValue(metaform, reply, field.Name)
		if err != nil {
			return replyResponse{}, err
		}
		if value == nil {
			continue
		}
		data[field.Name] = fieldValueToJSON(value)
	}

	return replyResponse{
		ID:             reply.ID,
		MetaformID:     reply.MetaformID,
		UserID:         reply.UserID,
		CreatedAt:      reply.CreatedAt,
		ModifiedAt:     reply.ModifiedAt,
		Revision:       reply.Revision,
		Data:           data,
		RejectedFields: rejected,
	}, nil
}

// fieldValueToJSON converts a stored field value to its JSON representation.
func fieldValueToJSON(value service.FieldValue) any {
	switch v := value.(type) {
	case service.StringValue:
		return string(v)
	case service.NumberValue:
		return float64(v)
	case service.BooleanValue:
		return bool(v)
	case service.ListValue:
		return []string(v)
	case service.TableValue:
		rows := make([]map[string]any, 0, len(v))
		for _, row := range v {
			cells := make(map[string]any, len(row))
			for name, cell := range row {
				switch c := cell.(type) {
				case service.StringCell:
					cells[name] = string(c)
				case service.NumberCell:
					cells[name] = float64(c)
				}
			}
			rows = append(rows, cells)
		}
		return rows
	case service.AttachmentValue:
		return []string(v)
	default:
		return nil
	}
}

// toStringSlice accepts a JSON array of strings.
func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// toTableRows accepts a JSON array of objects with string or number cells.
// Cells of any other type are dropped from their row.
func toTableRows(value any) ([]service.TableRow, bool) {
	raw, ok := value.([]any)
	if !ok {
		return nil, false
	}
	rows := make([]service.TableRow, 0, len(raw))
	for _, rawRow := range raw {
		cells, ok := rawRow.(map[string]any)
		if !ok {
			return nil, false
		}
		row := make(service.TableRow, len(cells))
		for name, cell := range cells {
			switch c := cell.(type) {
			case string:
				row[name] = service.StringCell(c)
			case float64:
				row[name] = service.NumberCell(c)
			}
		}
		rows = append(rows, row)
	}
	return rows, true
}

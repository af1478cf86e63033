package schema

import (
	"log/slog"
	"time"
)

// Meta field names resolvable from reply metadata.
const (
	MetaFieldLastEditor = "lastEditor"
	MetaFieldCreated    = "created"
	MetaFieldCreatedAt  = "createdAt"
	MetaFieldModified   = "modified"
)

// timestampLayout is the RFC 3339 extended offset date-time format used for
// computed timestamp fields.
const timestampLayout = "2006-01-02T15:04:05Z07:00"

// ReplyMeta carries the reply metadata meta fields are computed from.
type ReplyMeta struct {
	UserID     string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// ResolveMetaField computes the value of a meta field from reply metadata.
// An unrecognized meta field name is logged and resolves to absent
// (ok == false) rather than failing the read.
func ResolveMetaField(name string, reply ReplyMeta) (string, bool) {
	switch name {
	case MetaFieldLastEditor:
		return reply.UserID, true
	case MetaFieldCreated, MetaFieldCreatedAt:
		return reply.CreatedAt.Format(timestampLayout), true
	case MetaFieldModified:
		return reply.ModifiedAt.Format(timestampLayout), true
	default:
		slog.Warn("unrecognized meta field", "field", name)
		return "", false
	}
}

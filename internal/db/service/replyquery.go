package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/metaformlabs/metaform-server/internal/db/filter"
	"github.com/metaformlabs/metaform-server/internal/db/models"
	"github.com/metaformlabs/metaform-server/internal/schema"
)

// ListOptions restricts a reply listing.
type ListOptions struct {
	// Filters are the parsed field predicates; matching is conjunctive.
	Filters filter.Set
	// UserID restricts to one submitter when non-empty.
	UserID string
	// IncludeRevisions includes frozen historical replies.
	IncludeRevisions bool
	CreatedBefore    *time.Time
	CreatedAfter     *time.Time
	ModifiedBefore   *time.Time
	ModifiedAfter    *time.Time
}

// ReplyQuery builds filtered reply listings over the variant tables.
type ReplyQuery struct {
	db *gorm.DB
}

// NewReplyQuery creates a new ReplyQuery.
func NewReplyQuery(db *gorm.DB) *ReplyQuery {
	return &ReplyQuery{db: db}
}

// List returns the replies of a metaform matching the options, ordered by
// creation time. Each filter atom becomes an EXISTS subquery against the
// variant table of its storage category; a null-valued atom contributes a
// clause that never matches.
func (q *ReplyQuery) List(metaformID string, opts ListOptions) ([]models.Reply, error) {
	db := q.db.Model(&models.Reply{}).Where("metaform_id = ?", metaformID)

	if !opts.IncludeRevisions {
		db = db.Where("revision IS NULL")
	}
	if opts.UserID != "" {
		db = db.Where("user_id = ?", opts.UserID)
	}
	if opts.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *opts.CreatedBefore)
	}
	if opts.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *opts.CreatedAfter)
	}
	if opts.ModifiedBefore != nil {
		db = db.Where("modified_at <= ?", *opts.ModifiedBefore)
	}
	if opts.ModifiedAfter != nil {
		db = db.Where("modified_at >= ?", *opts.ModifiedAfter)
	}

	for _, atom := range opts.Filters.Atoms() {
		db = applyFilterAtom(db, atom)
	}

	var replies []models.Reply
	if err := db.Order("created_at ASC").Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("listing replies for metaform %s: %w", metaformID, err)
	}
	return replies, nil
}

func applyFilterAtom(db *gorm.DB, atom filter.Atom) *gorm.DB {
	if atom.IsNull() {
		// Unparseable literal: matches nothing regardless of operator.
		return db.Where("1 = 0")
	}

	var subquery string
	switch atom.Category {
	case schema.StorageTypeString:
		subquery = "SELECT 1 FROM string_reply_fields f WHERE f.reply_id = replies.id AND f.name = ? AND f.value = ?"
	case schema.StorageTypeNumber:
		subquery = "SELECT 1 FROM number_reply_fields f WHERE f.reply_id = replies.id AND f.name = ? AND f.value = ?"
	case schema.StorageTypeBoolean:
		subquery = "SELECT 1 FROM boolean_reply_fields f WHERE f.reply_id = replies.id AND f.name = ? AND f.value = ?"
	case schema.StorageTypeList:
		// List-category data lives in the list tables (checklist fields) or
		// the attachment tables (files fields), depending on which writer
		// stored it; membership must match either.
		list := "SELECT 1 FROM list_reply_fields f " +
			"JOIN list_reply_field_items i ON i.field_id = f.id " +
			"WHERE f.reply_id = replies.id AND f.name = ? AND i.value = ?"
		attachment := "SELECT 1 FROM attachment_reply_fields f " +
			"JOIN attachment_reply_field_items i ON i.field_id = f.id " +
			"WHERE f.reply_id = replies.id AND f.name = ? AND i.attachment_id = ?"
		if atom.Operator == filter.OperatorNotEquals {
			return db.Where("NOT EXISTS ("+list+") AND NOT EXISTS ("+attachment+")",
				atom.Field, atom.Value, atom.Field, atom.Value)
		}
		return db.Where("(EXISTS ("+list+") OR EXISTS ("+attachment+"))",
			atom.Field, atom.Value, atom.Field, atom.Value)
	default:
		// None-category atoms are dropped at parse time.
		return db
	}

	if atom.Operator == filter.OperatorNotEquals {
		return db.Where("NOT EXISTS ("+subquery+")", atom.Field, atom.Value)
	}
	return db.Where("EXISTS ("+subquery+")", atom.Field, atom.Value)
}

// Package models defines the GORM entities for replies and their
// type-partitioned field values. Each field variant lives in its own table;
// the (reply_id, name) pair is unique within every variant table and the
// store keeps it unique across tables by deleting the old variant before a
// cross-type overwrite.
package models

import "time"

// Reply is one submission of values against a metaform. A nil Revision
// marks the live reply for its (metaform, user) pair; a non-nil Revision
// marks an immutable historical snapshot.
type Reply struct {
	ID         string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	MetaformID string     `gorm:"column:metaform_id;index:idx_replies_metaform_user,priority:1;not null"`
	UserID     string     `gorm:"column:user_id;index:idx_replies_metaform_user,priority:2;not null"`
	ResourceID *string    `gorm:"column:resource_id"`
	Revision   *time.Time `gorm:"column:revision;index"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	ModifiedAt time.Time  `gorm:"column:modified_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Reply) TableName() string { return "replies" }

// Attachment is an uploaded file referenced by attachment field items.
type Attachment struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name        string    `gorm:"column:name;not null"`
	ContentType string    `gorm:"column:content_type"`
	Content     []byte    `gorm:"column:content"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Attachment) TableName() string { return "attachments" }

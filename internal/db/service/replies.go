package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metaformlabs/metaform-server/internal/db/models"
)

// ErrAlreadyRevision is returned when a revisioned reply is converted again.
// The live-to-revision transition is one-way and terminal.
var ErrAlreadyRevision = errors.New("reply is already a revision")

// ReplyStore manages reply rows and the revisioning lifecycle. The
// one-live-reply-per-(metaform, user) invariant is maintained by the
// submission workflow: the caller finds the live reply, converts it to a
// revision and creates the successor inside one request transaction.
type ReplyStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReplyStore creates a new ReplyStore.
func NewReplyStore(db *gorm.DB, logger *slog.Logger) *ReplyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplyStore{db: db, logger: logger}
}

// Create inserts a new live reply for the (metaform, user) pair.
func (s *ReplyStore) Create(metaformID, userID string) (*models.Reply, error) {
	reply := &models.Reply{
		ID:         uuid.New().String(),
		MetaformID: metaformID,
		UserID:     userID,
	}
	if err := s.db.Create(reply).Error; err != nil {
		return nil, fmt.Errorf("creating reply: %w", err)
	}
	return reply, nil
}

// GetByID retrieves a reply by ID. Returns nil, nil when no reply exists.
func (s *ReplyStore) GetByID(id string) (*models.Reply, error) {
	var reply models.Reply
	err := s.db.Where("id = ?", id).First(&reply).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting reply %s: %w", id, err)
	}
	return &reply, nil
}

// FindLive returns the live reply (revision IS NULL) for the
// (metaform, user) pair, or nil, nil when none exists. The data model
// guarantees at most one such reply.
func (s *ReplyStore) FindLive(metaformID, userID string) (*models.Reply, error) {
	var reply models.Reply
	err := s.db.Where("metaform_id = ? AND user_id = ? AND revision IS NULL", metaformID, userID).
		First(&reply).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding live reply: %w", err)
	}
	return &reply, nil
}

// ConvertToRevision freezes a live reply into an immutable revision by
// stamping its revision column with the last modification time. Invoked by
// the submission workflow exactly once per reply, when a new reply becomes
// the live one for the pair.
func (s *ReplyStore) ConvertToRevision(reply *models.Reply) error {
	if reply.Revision != nil {
		return ErrAlreadyRevision
	}
	// UpdateColumn skips the autoUpdateTime bump: freezing is not a
	// modification, and the stamp must equal the last real one.
	revision := reply.ModifiedAt
	if err := s.db.Model(reply).UpdateColumn("revision", revision).Error; err != nil {
		return fmt.Errorf("converting reply %s to revision: %w", reply.ID, err)
	}
	reply.Revision = &revision
	s.logger.Info("reply converted to revision",
		"reply", reply.ID, "metaform", reply.MetaformID, "revision", revision)
	return nil
}

// Touch bumps the reply's modification timestamp.
func (s *ReplyStore) Touch(reply *models.Reply) error {
	now := time.Now()
	if err := s.db.Model(reply).UpdateColumn("modified_at", now).Error; err != nil {
		return fmt.Errorf("touching reply %s: %w", reply.ID, err)
	}
	reply.ModifiedAt = now
	return nil
}

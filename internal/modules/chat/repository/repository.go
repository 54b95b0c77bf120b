package repository

import (
	"context"
	"strings"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	ListBetween(ctx context.Context, a, b uuid.UUID, search string) ([]entity.Message, error)
	ListTouching(ctx context.Context, userID uuid.UUID) ([]entity.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *entity.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListBetween returns the conversation in both directions, oldest first. Ties break on id.
func (r *messageRepository) ListBetween(ctx context.Context, a, b uuid.UUID, search string) ([]entity.Message, error) {
	var messages []entity.Message
	query := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)

	if search = strings.TrimSpace(search); search != "" {
		query = query.Where(`LOWER(content) LIKE ? ESCAPE '\'`, database.ContainsPattern(search))
	}

	err := query.Order("created_at asc").Order("id asc").Find(&messages).Error
	return messages, err
}

// ListTouching returns every message sent or received by the user, newest first.
func (r *messageRepository) ListTouching(ctx context.Context, userID uuid.UUID) ([]entity.Message, error) {
	var messages []entity.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at desc").
		Order("id desc").
		Find(&messages).Error
	return messages, err
}

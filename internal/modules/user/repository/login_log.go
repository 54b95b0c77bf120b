package repository

import (
	"context"

	"anoa.com/alumninetwork/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginLogRepository only appends and reads; audit rows are immutable.
type LoginLogRepository interface {
	Create(ctx context.Context, log *entity.LoginLog) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.LoginLog, error)
}

type loginLogRepository struct {
	db *gorm.DB
}

func NewLoginLogRepository(db *gorm.DB) LoginLogRepository {
	return &loginLogRepository{db: db}
}

func (r *loginLogRepository) Create(ctx context.Context, log *entity.LoginLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *loginLogRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.LoginLog, error) {
	var logs []entity.LoginLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Order("id desc").
		Find(&logs).Error
	return logs, err
}

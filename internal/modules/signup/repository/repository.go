package repository

import (
	"context"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	CreateOTP(ctx context.Context, otp *entity.SignupOTP) error
	LatestOTPForUpdate(ctx context.Context, email string) (*entity.SignupOTP, error)
	DeleteOTP(ctx context.Context, id uint) (int64, error)
	DeleteOTPsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	FindPendingByEmail(ctx context.Context, email string) (*entity.PendingSignup, error)
	FindUnapprovedForUpdate(ctx context.Context, email string) (*entity.PendingSignup, error)
	UsernameTakenByOther(ctx context.Context, username, email string) (bool, error)
	UpsertPending(ctx context.Context, pending *entity.PendingSignup) error
	MarkApproved(ctx context.Context, id uint, at time.Time) error
	DeletePending(ctx context.Context, id uint) error
	ListPending(ctx context.Context) ([]entity.PendingSignup, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *repository) CreateOTP(ctx context.Context, otp *entity.SignupOTP) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

// LatestOTPForUpdate locks the most recently issued code for the email.
func (r *repository) LatestOTPForUpdate(ctx context.Context, email string) (*entity.SignupOTP, error) {
	var otp entity.SignupOTP
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).
		Order("created_at desc").
		Order("id desc").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// DeleteOTP reports how many rows were removed so callers can detect a lost redemption race.
func (r *repository) DeleteOTP(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&entity.SignupOTP{}, id)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteOTPsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&entity.SignupOTP{})
	return res.RowsAffected, res.Error
}

func (r *repository) FindPendingByEmail(ctx context.Context, email string) (*entity.PendingSignup, error) {
	var pending entity.PendingSignup
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&pending).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repository) FindUnapprovedForUpdate(ctx context.Context, email string) (*entity.PendingSignup, error) {
	var pending entity.PendingSignup
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ? AND is_approved = ?", email, false).
		First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repository) UsernameTakenByOther(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.PendingSignup{}).
		Where("username = ? AND email <> ?", username, email).
		Count(&count).Error
	return count > 0, err
}

var pendingUpsertColumns = []string{
	"name", "role", "username", "password_hash", "is_approved", "approved_at",
	"college_name", "phone", "social_links", "profile_photo", "cover_photo", "bio",
	"contact_number", "passed_out_year", "current_work", "previous_work", "experience",
	"updated_at",
}

// UpsertPending inserts or overwrites the single pending record for pending.Email.
func (r *repository) UpsertPending(ctx context.Context, pending *entity.PendingSignup) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns(pendingUpsertColumns),
		}).
		Create(pending).Error
	if err != nil {
		return err
	}

	stored, err := r.FindPendingByEmail(ctx, pending.Email)
	if err != nil {
		return err
	}
	*pending = *stored
	return nil
}

func (r *repository) MarkApproved(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.PendingSignup{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_approved": true, "approved_at": at}).Error
}

func (r *repository) DeletePending(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.PendingSignup{}, id).Error
}

func (r *repository) ListPending(ctx context.Context) ([]entity.PendingSignup, error) {
	var pending []entity.PendingSignup
	err := r.db.WithContext(ctx).
		Where("is_approved = ?", false).
		Order("id asc").
		Find(&pending).Error
	return pending, err
}

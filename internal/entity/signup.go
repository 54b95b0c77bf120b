package entity

import "time"

// SignupOTP is one issued code. Several may exist per email; the newest one is authoritative.
type SignupOTP struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;index;not null" json:"email"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// PendingSignup is a registration awaiting an administrator decision. One row per email.
type PendingSignup struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Role         string     `gorm:"size:50;not null" json:"role"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsApproved   bool       `gorm:"default:false;index" json:"is_approved"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ProfileFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

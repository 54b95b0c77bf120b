package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleStudent = "student"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	RoleID       *uint      `json:"role_id"`
	Role         Role       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Profile      *Profile   `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) RoleName() string {
	return u.Role.Name
}

func (u *User) FullName() string {
	if u.Profile != nil && u.Profile.FullName != "" {
		return u.Profile.FullName
	}
	return u.Username
}

// ProfileFields are the profile attributes shared by a pending signup and the account it becomes.
type ProfileFields struct {
	CollegeName   string            `gorm:"size:500" json:"college_name"`
	Phone         string            `gorm:"size:20" json:"phone"`
	SocialLinks   map[string]string `gorm:"type:text;serializer:json" json:"social_links"`
	ProfilePhoto  *string           `gorm:"type:text" json:"profile_photo,omitempty"`
	CoverPhoto    *string           `gorm:"type:text" json:"cover_photo,omitempty"`
	Bio           string            `gorm:"size:500" json:"bio"`
	ContactNumber string            `gorm:"size:128" json:"contact_number"`
	PassedOutYear *int              `json:"passed_out_year,omitempty"`
	CurrentWork   string            `gorm:"size:255" json:"current_work"`
	PreviousWork  []string          `gorm:"type:text;serializer:json" json:"previous_work"`
	Experience    []string          `gorm:"type:text;serializer:json" json:"experience"`
}

type Profile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	ProfileFields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DefaultSocialLinks is the empty link set every new profile starts with.
func DefaultSocialLinks() map[string]string {
	return map[string]string{
		"linkedin":  "",
		"github":    "",
		"twitter":   "",
		"instagram": "",
	}
}

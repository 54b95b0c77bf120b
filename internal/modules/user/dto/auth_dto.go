package dto

import (
	"anoa.com/alumninetwork/internal/entity"
	"github.com/google/uuid"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginMeta is the request context recorded in the login audit log.
type LoginMeta struct {
	IP        string
	UserAgent string
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
}

// UserSummary is the public view of an account used in search results and chat listings.
type UserSummary struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role,omitempty"`
	ProfilePhoto *string   `json:"profile_photo"`
}

func NewUserSummary(u *entity.User) UserSummary {
	s := UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.FullName(),
		Role:     u.Role.Name,
	}
	if u.Profile != nil {
		s.ProfilePhoto = u.Profile.ProfilePhoto
	}
	return s
}

type SearchQuery struct {
	Q string `form:"q"`
}

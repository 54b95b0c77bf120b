package dto

import (
	"io"

	"anoa.com/alumninetwork/internal/entity"
)

type IssueOTPInput struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

// SubmitSignupInput carries no binding tags for the required profile fields: the service reports
// every missing field at once.
type SubmitSignupInput struct {
	Email         string            `json:"email" form:"email"`
	OTP           string            `json:"otp" form:"otp"`
	Name          string            `json:"name" form:"name"`
	CollegeName   string            `json:"college_name" form:"college_name"`
	Role          string            `json:"role" form:"role"`
	Phone         string            `json:"phone" form:"phone"`
	Username      string            `json:"username" form:"username"`
	Password      string            `json:"password" form:"password"`
	Bio           string            `json:"bio" form:"bio" binding:"max=500"`
	ContactNumber string            `json:"contact_number" form:"contact_number"`
	PassedOutYear *int              `json:"passed_out_year" form:"passed_out_year" binding:"omitempty,min=1900,max=2100"`
	CurrentWork   string            `json:"current_work" form:"current_work"`
	SocialLinks   map[string]string `json:"social_links" form:"social_links"`
	PreviousWork  []string          `json:"previous_work" form:"previous_work"`
	Experience    []string          `json:"experience" form:"experience"`

	ProfilePhoto *PhotoFile `json:"-" form:"-"`
	CoverPhoto   *PhotoFile `json:"-" form:"-"`
}

// PhotoFile is an uploaded image attached to a signup request.
type PhotoFile struct {
	Reader   io.Reader
	FileName string
}

type EmailInput struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

type SubmitSignupResponse struct {
	Message string                `json:"message"`
	Pending *entity.PendingSignup `json:"pending"`
}

type ApproveSignupResponse struct {
	Message string       `json:"message"`
	User    *entity.User `json:"user"`
}

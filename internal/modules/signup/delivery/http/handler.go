package handler

import (
	"mime/multipart"
	"net/http"

	"anoa.com/alumninetwork/internal/modules/signup/dto"
	signupService "anoa.com/alumninetwork/internal/modules/signup/service"
	"anoa.com/alumninetwork/pkg/apperror"
	"anoa.com/alumninetwork/pkg/response"
	"anoa.com/alumninetwork/pkg/validator"
	"github.com/gin-gonic/gin"
)

type SignupHandler struct {
	signupService signupService.SignupService
}

func NewSignupHandler(signupService signupService.SignupService) *SignupHandler {
	return &SignupHandler{
		signupService: signupService,
	}
}

func (h *SignupHandler) IssueOTP(c *gin.Context) {
	var input dto.IssueOTPInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	if err := h.signupService.IssueOTP(c.Request.Context(), input.Email); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

// openPhoto returns nil when the form carries no file under field.
func openPhoto(c *gin.Context, field string) (*dto.PhotoFile, multipart.File, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil || fileHeader == nil {
		return nil, nil, nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, apperror.NewValidation("failed to read "+field, field)
	}

	return &dto.PhotoFile{Reader: file, FileName: fileHeader.Filename}, file, nil
}

func (h *SignupHandler) Submit(c *gin.Context) {
	var input dto.SubmitSignupInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		for field, target := range map[string]**dto.PhotoFile{
			"profile_photo": &input.ProfilePhoto,
			"cover_photo":   &input.CoverPhoto,
		} {
			photo, file, err := openPhoto(c, field)
			if err != nil {
				response.ResponseError(c, err)
				return
			}
			if file != nil {
				defer file.Close()
			}
			*target = photo
		}
	}

	pending, err := h.signupService.SubmitSignup(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SubmitSignupResponse{
		Message: "Signup submitted, awaiting administrator approval",
		Pending: pending,
	})
}

func (h *SignupHandler) ListPending(c *gin.Context) {
	pending, err := h.signupService.ListPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pending})
}

func (h *SignupHandler) Approve(c *gin.Context) {
	var input dto.EmailInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	user, err := h.signupService.ApproveSignup(c.Request.Context(), input.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ApproveSignupResponse{
		Message: "Signup approved",
		User:    user,
	})
}

func (h *SignupHandler) Deny(c *gin.Context) {
	var input dto.EmailInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	if err := h.signupService.DenySignup(c.Request.Context(), input.Email); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signup request denied"})
}

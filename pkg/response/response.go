package response

import (
	"errors"
	"log"
	"net/http"

	"anoa.com/alumninetwork/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	idStr, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code >= http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	var ve *apperror.ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		c.JSON(code, gin.H{"error": err.Error(), "fields": ve.Fields})
		return
	}

	c.JSON(code, gin.H{"error": apperror.PublicMessage(err)})
}

package handler

import (
	"net/http"

	"anoa.com/alumninetwork/internal/modules/user/dto"
	userService "anoa.com/alumninetwork/internal/modules/user/service"
	"anoa.com/alumninetwork/pkg/response"
	"anoa.com/alumninetwork/pkg/validator"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	authService userService.AuthService
}

func NewUserHandler(authService userService.AuthService) *UserHandler {
	return &UserHandler{
		authService: authService,
	}
}

func (h *UserHandler) login(c *gin.Context, scope userService.Scope) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	meta := dto.LoginMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	res, err := h.authService.Login(c.Request.Context(), input, scope, meta)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) Login(c *gin.Context) {
	h.login(c, userService.ScopeUser)
}

func (h *UserHandler) StaffLogin(c *gin.Context) {
	h.login(c, userService.ScopeStaff)
}

func (h *UserHandler) AdminLogin(c *gin.Context) {
	h.login(c, userService.ScopeAdmin)
}

func (h *UserHandler) LoginHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	logs, err := h.authService.LoginHistory(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.authService.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	users, err := h.authService.SearchUsers(c.Request.Context(), query.Q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

package handler

import (
	"log"
	"net/http"

	"anoa.com/alumninetwork/internal/modules/chat/dto"
	chatService "anoa.com/alumninetwork/internal/modules/chat/service"
	"anoa.com/alumninetwork/internal/modules/chat/ws"
	"anoa.com/alumninetwork/pkg/apperror"
	"anoa.com/alumninetwork/pkg/response"
	"anoa.com/alumninetwork/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type ChatHandler struct {
	chatService chatService.ChatService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

func NewChatHandler(chatService chatService.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS joins the caller to the room before upgrading so authorization failures are plain HTTP errors.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	room, err := h.chatService.JoinRoom(c.Request.Context(), userID, c.Param("room_id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}

	ws.ServeClient(h.hub, conn, room, userID, h.chatService)
}

func (h *ChatHandler) GetRoom(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.RoomQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	room, err := h.chatService.ListRoom(c.Request.Context(), userID, c.Param("room_name"), query.Search)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *ChatHandler) AvailableChats(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	chats, err := h.chatService.ListAvailableChats(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": chats})
}

func (h *ChatHandler) CreateMessage(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	receiverID, err := uuid.Parse(c.Param("receiver_id"))
	if err != nil {
		response.ResponseError(c, apperror.NewValidation("receiver_id must be a valid id", "receiver_id"))
		return
	}

	var input dto.SendMessageInput
	if err := c.ShouldBind(&input); err != nil {
		response.ResponseError(c, validator.ToAppError(err))
		return
	}

	msg, err := h.chatService.CreateMessage(c.Request.Context(), userID, receiverID, input.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

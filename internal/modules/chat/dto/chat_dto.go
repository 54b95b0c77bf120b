package dto

import (
	"time"

	userDto "anoa.com/alumninetwork/internal/modules/user/dto"
	"github.com/google/uuid"
)

type SendMessageInput struct {
	Content string `json:"content" form:"content" binding:"required"`
}

type RoomQuery struct {
	Search string `form:"search"`
}

type MessageResponse struct {
	ID        uuid.UUID           `json:"id"`
	Content   string              `json:"content"`
	Sender    userDto.UserSummary `json:"sender"`
	Receiver  userDto.UserSummary `json:"receiver"`
	RoomName  string              `json:"room_name"`
	Timestamp time.Time           `json:"timestamp"`
}

type RoomResponse struct {
	RoomName     string                `json:"room_name"`
	Participants []userDto.UserSummary `json:"participants"`
	// Partner is nil when the viewer is an administrator outside the conversation.
	Partner *userDto.UserSummary `json:"partner"`
	Chats   []MessageResponse    `json:"chats"`
	Search  string               `json:"search_query"`
}

// ChatSummary is one entry of the conversation list, keyed by partner.
type ChatSummary struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	RoomName    string              `json:"room_name"`
	LastMessage string              `json:"last_message"`
	Time        time.Time           `json:"time"`
	User        userDto.UserSummary `json:"user"`
}

// Frame is the websocket envelope sent to clients.
type Frame struct {
	Type    string        `json:"type"`
	Room    string        `json:"room,omitempty"`
	Message *FrameMessage `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

const (
	FrameConnected   = "connected"
	FrameChatMessage = "chat_message"
	FrameError       = "error"
)

type FrameSender struct {
	Username string `json:"username"`
}

type FrameMessage struct {
	ID        uuid.UUID   `json:"id"`
	Content   string      `json:"content"`
	Sender    FrameSender `json:"sender"`
	Timestamp string      `json:"timestamp"`
}

// InboundFrame is what clients write on the socket. "message" and "content" are both accepted.
type InboundFrame struct {
	Message string `json:"message"`
	Content string `json:"content"`
}

func (f InboundFrame) Text() string {
	if f.Message != "" {
		return f.Message
	}
	return f.Content
}

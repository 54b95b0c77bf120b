package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"anoa.com/alumninetwork/internal/modules/chat/dto"
	"anoa.com/alumninetwork/pkg/apperror"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
	persistTimeout = 10 * time.Second
)

// RoomSender persists a message posted to a room and returns the frame to fan out.
type RoomSender interface {
	SendToRoom(ctx context.Context, senderID uuid.UUID, roomName, content string) (*dto.Frame, error)
}

// Client is one websocket connection joined to a single room.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	room     string
	userID   uuid.UUID
	sender   RoomSender
	send     chan []byte
	greeting []byte
}

// errorFrame reports a failed send to the sender only; 5xx causes are logged, not echoed.
func errorFrame(err error) dto.Frame {
	if apperror.MapErrorToStatus(err) >= http.StatusInternalServerError {
		log.Printf("[chat] send failed: %v", err)
	}
	return dto.Frame{Type: dto.FrameError, Error: apperror.PublicMessage(err)}
}

func mustMarshal(frame dto.Frame) []byte {
	b, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[chat] failed to encode frame: %v", err)
		return []byte(`{"type":"error"}`)
	}
	return b
}

// ServeClient registers the connection in room and pumps frames until it disconnects.
func ServeClient(hub *Hub, conn *websocket.Conn, room string, userID uuid.UUID, sender RoomSender) {
	client := &Client{
		hub:      hub,
		conn:     conn,
		room:     room,
		userID:   userID,
		sender:   sender,
		send:     make(chan []byte, sendBuffer),
		greeting: mustMarshal(dto.Frame{Type: dto.FrameConnected, Room: room}),
	}

	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[chat] read error for %s: %v", c.userID, err)
			}
			return
		}

		var in dto.InboundFrame
		if err := json.Unmarshal(data, &in); err != nil || in.Text() == "" {
			c.hub.Reply(c, mustMarshal(dto.Frame{Type: dto.FrameError, Error: "invalid message frame"}))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		frame, err := c.sender.SendToRoom(ctx, c.userID, c.room, in.Text())
		cancel()
		if err != nil {
			c.hub.Reply(c, mustMarshal(errorFrame(err)))
			continue
		}

		c.hub.Broadcast(c.room, mustMarshal(*frame))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/internal/modules/chat/dto"
	"anoa.com/alumninetwork/internal/modules/chat/repository"
	chatService "anoa.com/alumninetwork/internal/modules/chat/service"
	"anoa.com/alumninetwork/internal/modules/chat/ws"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type chatServer struct {
	db    *gorm.DB
	hub   *ws.Hub
	srv   *httptest.Server
	alice *entity.User
	bob   *entity.User
	carol *entity.User
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	s := &chatServer{
		db:    db,
		hub:   ws.NewHub(),
		alice: testutil.CreateUser(t, db, "alice", entity.RoleStudent, "pw-123456"),
		bob:   testutil.CreateUser(t, db, "bob", entity.RoleStudent, "pw-123456"),
		carol: testutil.CreateUser(t, db, "carol", entity.RoleStudent, "pw-123456"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.hub.Run(ctx)

	svc := chatService.NewChatService(repository.NewMessageRepository(db), userRepo.NewUserRepository(db), nil)
	h := NewChatHandler(svc, s.hub)

	r := gin.New()
	// Stands in for the JWT middleware.
	r.Use(func(c *gin.Context) {
		c.Set("user_id", c.Query("as"))
		c.Next()
	})
	r.GET("/ws/:room_id", h.ServeWS)
	r.GET("/rooms/:room_name", h.GetRoom)
	r.GET("/available", h.AvailableChats)
	r.POST("/messages/:receiver_id", h.CreateMessage)

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *chatServer) dial(t *testing.T, room string, user *entity.User) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/" + room + "?as=" + user.ID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) dto.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame dto.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocketDeliversToBothParticipants(t *testing.T) {
	s := newChatServer(t)

	aliceConn := s.dial(t, "alice_bob", s.alice)
	ack := readFrame(t, aliceConn)
	assert.Equal(t, dto.FrameConnected, ack.Type)
	assert.Equal(t, "alice_bob", ack.Room)

	// Bob joins by naming his partner; the room is canonicalised.
	bobConn := s.dial(t, "alice", s.bob)
	ack = readFrame(t, bobConn)
	assert.Equal(t, "alice_bob", ack.Room)

	require.NoError(t, aliceConn.WriteJSON(map[string]string{"message": "hi bob"}))

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		frame := readFrame(t, conn)
		assert.Equal(t, dto.FrameChatMessage, frame.Type)
		require.NotNil(t, frame.Message)
		assert.Equal(t, "hi bob", frame.Message.Content)
		assert.Equal(t, "alice", frame.Message.Sender.Username)
	}

	var stored []entity.Message
	require.NoError(t, s.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, s.alice.ID, stored[0].SenderID)
	assert.Equal(t, s.bob.ID, stored[0].ReceiverID)
}

func TestWebSocketInvalidFrameGetsError(t *testing.T) {
	s := newChatServer(t)
	conn := s.dial(t, "alice_bob", s.alice)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	frame := readFrame(t, conn)
	assert.Equal(t, dto.FrameError, frame.Type)

	var count int64
	require.NoError(t, s.db.Model(&entity.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebSocketRejectsOutsider(t *testing.T) {
	s := newChatServer(t)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/alice_bob?as=" + s.carol.ID.String()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRESTMessageAppearsInRoomAndAvailableChats(t *testing.T) {
	s := newChatServer(t)

	body := strings.NewReader(`{"content":"hello over http"}`)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/messages/"+s.bob.ID.String()+"?as="+s.alice.ID.String(), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/rooms/alice_bob?search=HTTP&as=" + s.bob.ID.String())
	require.NoError(t, err)
	var room dto.RoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	resp.Body.Close()
	require.Len(t, room.Chats, 1)
	assert.Equal(t, "hello over http", room.Chats[0].Content)

	resp, err = http.Get(s.srv.URL + "/available?as=" + s.bob.ID.String())
	require.NoError(t, err)
	var available struct {
		Data []dto.ChatSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&available))
	resp.Body.Close()
	require.Len(t, available.Data, 1)
	assert.Equal(t, "alice_bob", available.Data[0].RoomName)
}

func TestCreateMessageBadReceiver(t *testing.T) {
	s := newChatServer(t)

	resp, err := http.Post(s.srv.URL+"/messages/not-a-uuid?as="+s.alice.ID.String(), "application/json",
		strings.NewReader(`{"content":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

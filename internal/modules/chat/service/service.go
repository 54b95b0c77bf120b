package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/internal/modules/chat/dto"
	"anoa.com/alumninetwork/internal/modules/chat/repository"
	userDto "anoa.com/alumninetwork/internal/modules/user/dto"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type ChatService interface {
	CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*dto.MessageResponse, error)
	ListRoom(ctx context.Context, viewerID uuid.UUID, roomName, search string) (*dto.RoomResponse, error)
	ListAvailableChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatSummary, error)
	SendToRoom(ctx context.Context, senderID uuid.UUID, roomName, content string) (*dto.Frame, error)
	JoinRoom(ctx context.Context, userID uuid.UUID, roomName string) (string, error)
}

type chatService struct {
	repo   repository.MessageRepository
	users  userRepo.UserRepository
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewChatService(repo repository.MessageRepository, users userRepo.UserRepository, now func() time.Time) ChatService {
	if now == nil {
		now = time.Now
	}
	return &chatService{
		repo:   repo,
		users:  users,
		policy: bluemonday.StrictPolicy(),
		now:    now,
	}
}

func (s *chatService) findUser(ctx context.Context, id uuid.UUID, missing error) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, missing
		}
		return nil, err
	}
	return user, nil
}

// resolveRoom maps a room name to its two participants. A bare username pairs the viewer with
// that user; otherwise the name is split at each "_" until both halves are distinct accounts.
func (s *chatService) resolveRoom(ctx context.Context, viewer *entity.User, roomName string) (*entity.User, *entity.User, error) {
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		return nil, nil, fmt.Errorf("%w: room not found", apperror.ErrNotFound)
	}

	if roomName != viewer.Username {
		partner, err := s.users.FindByUsername(ctx, roomName)
		if err == nil {
			return viewer, partner, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	type split struct{ left, right string }
	var splits []split
	var names []string
	for i := 0; i < len(roomName); i++ {
		if roomName[i] != '_' {
			continue
		}
		left, right := roomName[:i], roomName[i+1:]
		if left == "" || right == "" || left == right {
			continue
		}
		splits = append(splits, split{left, right})
		names = append(names, left, right)
	}

	found, err := s.users.FindByUsernames(ctx, names)
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]*entity.User, len(found))
	for _, u := range found {
		byName[u.Username] = u
	}

	var fallback []*entity.User
	for _, sp := range splits {
		a, b := byName[sp.left], byName[sp.right]
		if a == nil || b == nil {
			continue
		}
		if a.ID == viewer.ID || b.ID == viewer.ID {
			return a, b, nil
		}
		if fallback == nil {
			fallback = []*entity.User{a, b}
		}
	}
	if fallback == nil {
		return nil, nil, fmt.Errorf("%w: room %q not found", apperror.ErrNotFound, roomName)
	}

	if viewer.RoleName() != entity.RoleAdmin {
		return nil, nil, fmt.Errorf("%w: you are not a participant of this room", apperror.ErrForbidden)
	}
	return fallback[0], fallback[1], nil
}

// sanitize strips markup but keeps the text as typed; escaping is left to whoever renders it.
func (s *chatService) sanitize(content string) (string, error) {
	content = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(content)))
	if content == "" {
		return "", apperror.NewValidation("content is required", "content")
	}
	return content, nil
}

func (s *chatService) persist(ctx context.Context, sender, receiver *entity.User, content string) (*entity.Message, error) {
	if sender.ID == receiver.ID {
		return nil, apperror.NewValidation("cannot send a message to yourself", "receiver_id")
	}

	content, err := s.sanitize(content)
	if err != nil {
		return nil, err
	}

	msg := &entity.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	msg.Sender = sender
	msg.Receiver = receiver
	return msg, nil
}

func toMessageResponse(msg *entity.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		Content:   msg.Content,
		Sender:    userDto.NewUserSummary(msg.Sender),
		Receiver:  userDto.NewUserSummary(msg.Receiver),
		RoomName:  entity.RoomName(msg.Sender.Username, msg.Receiver.Username),
		Timestamp: msg.CreatedAt,
	}
}

func (s *chatService) CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*dto.MessageResponse, error) {
	sender, err := s.findUser(ctx, senderID, apperror.ErrUnauthorized)
	if err != nil {
		return nil, err
	}
	receiver, err := s.findUser(ctx, receiverID, fmt.Errorf("%w: receiver not found", apperror.ErrNotFound))
	if err != nil {
		return nil, err
	}

	msg, err := s.persist(ctx, sender, receiver, content)
	if err != nil {
		return nil, err
	}

	res := toMessageResponse(msg)
	return &res, nil
}

func (s *chatService) ListRoom(ctx context.Context, viewerID uuid.UUID, roomName, search string) (*dto.RoomResponse, error) {
	viewer, err := s.findUser(ctx, viewerID, apperror.ErrUnauthorized)
	if err != nil {
		return nil, err
	}
	a, b, err := s.resolveRoom(ctx, viewer, roomName)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.ListBetween(ctx, a.ID, b.ID, search)
	if err != nil {
		return nil, err
	}

	users := map[uuid.UUID]*entity.User{a.ID: a, b.ID: b}
	chats := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		messages[i].Sender = users[messages[i].SenderID]
		messages[i].Receiver = users[messages[i].ReceiverID]
		chats = append(chats, toMessageResponse(&messages[i]))
	}

	res := &dto.RoomResponse{
		RoomName:     entity.RoomName(a.Username, b.Username),
		Participants: []userDto.UserSummary{userDto.NewUserSummary(a), userDto.NewUserSummary(b)},
		Chats:        chats,
		Search:       strings.TrimSpace(search),
	}
	switch viewer.ID {
	case a.ID:
		res.Partner = &res.Participants[1]
	case b.ID:
		res.Partner = &res.Participants[0]
	}
	return res, nil
}

func (s *chatService) ListAvailableChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatSummary, error) {
	user, err := s.findUser(ctx, userID, apperror.ErrUnauthorized)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.ListTouching(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Newest first, so the first message seen per partner is the latest one.
	var order []uuid.UUID
	latest := make(map[uuid.UUID]entity.Message)
	for _, msg := range messages {
		partnerID := msg.ReceiverID
		if partnerID == userID {
			partnerID = msg.SenderID
		}
		if _, seen := latest[partnerID]; seen {
			continue
		}
		latest[partnerID] = msg
		order = append(order, partnerID)
	}

	partners, err := s.users.FindByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*entity.User, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	summaries := make([]dto.ChatSummary, 0, len(order))
	for _, id := range order {
		partner, ok := byID[id]
		if !ok {
			continue
		}
		msg := latest[id]
		summaries = append(summaries, dto.ChatSummary{
			ID:          partner.ID,
			Name:        partner.FullName(),
			RoomName:    entity.RoomName(user.Username, partner.Username),
			LastMessage: msg.Content,
			Time:        msg.CreatedAt,
			User:        userDto.NewUserSummary(partner),
		})
	}
	return summaries, nil
}

func (s *chatService) SendToRoom(ctx context.Context, senderID uuid.UUID, roomName, content string) (*dto.Frame, error) {
	sender, err := s.findUser(ctx, senderID, apperror.ErrUnauthorized)
	if err != nil {
		return nil, err
	}
	a, b, err := s.resolveRoom(ctx, sender, roomName)
	if err != nil {
		return nil, err
	}

	var receiver *entity.User
	switch sender.ID {
	case a.ID:
		receiver = b
	case b.ID:
		receiver = a
	default:
		return nil, fmt.Errorf("%w: only participants can post to this room", apperror.ErrForbidden)
	}

	msg, err := s.persist(ctx, sender, receiver, content)
	if err != nil {
		return nil, err
	}

	return &dto.Frame{
		Type: dto.FrameChatMessage,
		Room: entity.RoomName(a.Username, b.Username),
		Message: &dto.FrameMessage{
			ID:        msg.ID,
			Content:   msg.Content,
			Sender:    dto.FrameSender{Username: sender.Username},
			Timestamp: msg.CreatedAt.Format(time.RFC3339Nano),
		},
	}, nil
}

func (s *chatService) JoinRoom(ctx context.Context, userID uuid.UUID, roomName string) (string, error) {
	user, err := s.findUser(ctx, userID, apperror.ErrUnauthorized)
	if err != nil {
		return "", err
	}
	a, b, err := s.resolveRoom(ctx, user, roomName)
	if err != nil {
		return "", err
	}
	return entity.RoomName(a.Username, b.Username), nil
}

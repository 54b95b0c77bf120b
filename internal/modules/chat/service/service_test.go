package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/internal/modules/chat/dto"
	"anoa.com/alumninetwork/internal/modules/chat/repository"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/internal/testutil"
	"anoa.com/alumninetwork/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// steppingClock advances one second per reading so messages have distinct timestamps.
func steppingClock() func() time.Time {
	t := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newService(db *gorm.DB) ChatService {
	return NewChatService(repository.NewMessageRepository(db), userRepo.NewUserRepository(db), steppingClock())
}

type people struct {
	alice, bob, carol, admin *entity.User
}

func seedPeople(t *testing.T, db *gorm.DB) people {
	return people{
		alice: testutil.CreateUser(t, db, "alice", entity.RoleStudent, "pw-123456"),
		bob:   testutil.CreateUser(t, db, "bob", entity.RoleStaff, "pw-123456"),
		carol: testutil.CreateUser(t, db, "carol", entity.RoleStudent, "pw-123456"),
		admin: testutil.CreateUser(t, db, "root", entity.RoleAdmin, "pw-123456"),
	}
}

func send(t *testing.T, svc ChatService, from, to *entity.User, content string) *dto.MessageResponse {
	t.Helper()
	msg, err := svc.CreateMessage(context.Background(), from.ID, to.ID, content)
	require.NoError(t, err)
	return msg
}

func TestCreateMessage(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)

	msg := send(t, svc, p.alice, p.bob, "  hello <b>bob</b><script>alert(1)</script> ")

	assert.Equal(t, "hello bob", msg.Content)
	assert.Equal(t, "alice", msg.Sender.Username)
	assert.Equal(t, "bob", msg.Receiver.Username)
	assert.Equal(t, "alice_bob", msg.RoomName)

	var stored entity.Message
	require.NoError(t, db.First(&stored, "id = ?", msg.ID).Error)
	assert.Equal(t, p.alice.ID, stored.SenderID)
	assert.Equal(t, p.bob.ID, stored.ReceiverID)
}

func TestMessageContentRoundTrips(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)
	ctx := context.Background()
	const text = `Tom & Jerry say 1 < 2, "ok" & don't`

	msg := send(t, svc, p.alice, p.bob, text)
	assert.Equal(t, text, msg.Content)

	var stored entity.Message
	require.NoError(t, db.First(&stored, "id = ?", msg.ID).Error)
	assert.Equal(t, text, stored.Content)

	frame, err := svc.SendToRoom(ctx, p.bob.ID, "alice_bob", text)
	require.NoError(t, err)
	require.NotNil(t, frame.Message)
	assert.Equal(t, text, frame.Message.Content)

	room, err := svc.ListRoom(ctx, p.alice.ID, "alice_bob", "1 < 2")
	require.NoError(t, err)
	require.Len(t, room.Chats, 2)
	for _, chat := range room.Chats {
		assert.Equal(t, text, chat.Content)
	}
}

func TestCreateMessageRejects(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)
	ctx := context.Background()

	_, err := svc.CreateMessage(ctx, p.alice.ID, uuid.New(), "hi")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.CreateMessage(ctx, p.alice.ID, p.alice.ID, "hi")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.CreateMessage(ctx, p.alice.ID, p.bob.ID, "<script></script>   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	var count int64
	require.NoError(t, db.Model(&entity.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListRoomReturnsPairOnly(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)

	send(t, svc, p.alice, p.bob, "first")
	send(t, svc, p.alice, p.carol, "not for bob")
	send(t, svc, p.bob, p.alice, "Second reply")
	send(t, svc, p.carol, p.bob, "also not")
	send(t, svc, p.alice, p.bob, "third")

	room, err := svc.ListRoom(context.Background(), p.alice.ID, "alice_bob", "")
	require.NoError(t, err)

	assert.Equal(t, "alice_bob", room.RoomName)
	require.NotNil(t, room.Partner)
	assert.Equal(t, "bob", room.Partner.Username)
	require.Len(t, room.Chats, 3)
	assert.Equal(t, "first", room.Chats[0].Content)
	assert.Equal(t, "Second reply", room.Chats[1].Content)
	assert.Equal(t, "third", room.Chats[2].Content)

	// A bare username names the conversation with the viewer.
	byName, err := svc.ListRoom(context.Background(), p.bob.ID, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", byName.RoomName)
	assert.Len(t, byName.Chats, 3)
}

func TestListRoomSearchIsCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)

	send(t, svc, p.alice, p.bob, "Lunch tomorrow?")
	send(t, svc, p.bob, p.alice, "sure, LUNCH at noon")
	send(t, svc, p.alice, p.bob, "great")

	room, err := svc.ListRoom(context.Background(), p.alice.ID, "alice_bob", "lunch")
	require.NoError(t, err)

	assert.Equal(t, "lunch", room.Search)
	require.Len(t, room.Chats, 2)
	assert.Equal(t, "Lunch tomorrow?", room.Chats[0].Content)
	assert.Equal(t, "sure, LUNCH at noon", room.Chats[1].Content)
}

func TestListRoomSearchMatchesWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)
	ctx := context.Background()

	send(t, svc, p.alice, p.bob, "discount 50 off")
	send(t, svc, p.bob, p.alice, "nothing here")

	for _, term := range []string{"%", "_", `\`, "50%"} {
		room, err := svc.ListRoom(ctx, p.alice.ID, "alice_bob", term)
		require.NoError(t, err)
		assert.Empty(t, room.Chats, "search %q", term)
	}

	room, err := svc.ListRoom(ctx, p.alice.ID, "alice_bob", "50")
	require.NoError(t, err)
	require.Len(t, room.Chats, 1)
	assert.Equal(t, "discount 50 off", room.Chats[0].Content)

	send(t, svc, p.alice, p.bob, "100% sure, file_name ok")
	room, err = svc.ListRoom(ctx, p.alice.ID, "alice_bob", "0% s")
	require.NoError(t, err)
	require.Len(t, room.Chats, 1)
	room, err = svc.ListRoom(ctx, p.alice.ID, "alice_bob", "E_N")
	require.NoError(t, err)
	require.Len(t, room.Chats, 1)
}

func TestSameTimestampMessagesOrderByID(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	repo := repository.NewMessageRepository(db)
	svc := NewChatService(repo, userRepo.NewUserRepository(db), func() time.Time { return at })
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		ids = append(ids, send(t, svc, p.alice, p.bob, content).ID.String())
	}
	sort.Strings(ids)

	for i := 0; i < 3; i++ {
		room, err := svc.ListRoom(ctx, p.alice.ID, "alice_bob", "")
		require.NoError(t, err)
		require.Len(t, room.Chats, len(ids))
		for j, chat := range room.Chats {
			assert.Equal(t, ids[j], chat.ID.String())
		}
	}

	touching, err := repo.ListTouching(ctx, p.bob.ID)
	require.NoError(t, err)
	require.Len(t, touching, len(ids))
	for j, msg := range touching {
		assert.Equal(t, ids[len(ids)-1-j], msg.ID.String())
	}
}

func TestListRoomAccess(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)
	ctx := context.Background()
	send(t, svc, p.alice, p.bob, "private")

	_, err := svc.ListRoom(ctx, p.carol.ID, "alice_bob", "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	room, err := svc.ListRoom(ctx, p.admin.ID, "alice_bob", "")
	require.NoError(t, err)
	assert.Nil(t, room.Partner)
	assert.Len(t, room.Chats, 1)

	_, err = svc.ListRoom(ctx, p.alice.ID, "nobody_here", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ListRoom(ctx, p.alice.ID, "alice", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRoomNameWithUnderscoredUsername(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	mary := testutil.CreateUser(t, db, "mary_jane", entity.RoleStudent, "pw-123456")
	svc := newService(db)

	send(t, svc, mary, p.bob, "hey bob")

	room, err := svc.ListRoom(context.Background(), p.bob.ID, "bob_mary_jane", "")
	require.NoError(t, err)
	assert.Equal(t, "bob_mary_jane", room.RoomName)
	require.NotNil(t, room.Partner)
	assert.Equal(t, "mary_jane", room.Partner.Username)
	assert.Len(t, room.Chats, 1)
}

func TestListAvailableChatsOneEntryPerPartner(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)

	send(t, svc, p.alice, p.bob, "hi bob")
	send(t, svc, p.carol, p.alice, "hi alice")
	send(t, svc, p.bob, p.alice, "hey alice")
	send(t, svc, p.bob, p.carol, "unrelated")

	chats, err := svc.ListAvailableChats(context.Background(), p.alice.ID)
	require.NoError(t, err)

	require.Len(t, chats, 2)
	assert.Equal(t, p.bob.ID, chats[0].ID)
	assert.Equal(t, "alice_bob", chats[0].RoomName)
	assert.Equal(t, "hey alice", chats[0].LastMessage)
	assert.Equal(t, "Full bob", chats[0].Name)
	assert.Equal(t, p.carol.ID, chats[1].ID)
	assert.Equal(t, "alice_carol", chats[1].RoomName)
	assert.Equal(t, "hi alice", chats[1].LastMessage)

	none, err := svc.ListAvailableChats(context.Background(), p.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSendToRoomBuildsFrame(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)
	ctx := context.Background()

	frame, err := svc.SendToRoom(ctx, p.bob.ID, "alice_bob", "over the socket")
	require.NoError(t, err)

	assert.Equal(t, dto.FrameChatMessage, frame.Type)
	assert.Equal(t, "alice_bob", frame.Room)
	require.NotNil(t, frame.Message)
	assert.Equal(t, "bob", frame.Message.Sender.Username)
	assert.Equal(t, "over the socket", frame.Message.Content)
	_, err = time.Parse(time.RFC3339Nano, frame.Message.Timestamp)
	assert.NoError(t, err)

	var stored entity.Message
	require.NoError(t, db.First(&stored, "id = ?", frame.Message.ID).Error)
	assert.Equal(t, p.alice.ID, stored.ReceiverID)

	_, err = svc.SendToRoom(ctx, p.admin.ID, "alice_bob", "intrude")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestJoinRoomCanonicalName(t *testing.T) {
	db := testutil.NewDB(t)
	p := seedPeople(t, db)
	svc := newService(db)

	room, err := svc.JoinRoom(context.Background(), p.bob.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", room)

	_, err = svc.JoinRoom(context.Background(), p.carol.ID, "alice_bob")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

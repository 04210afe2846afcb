package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/model"
	"codeberg.org/kcchat/server/internal/registry"
)

func commandsRegistryForTest() *commands.Registry {
	reg := commands.NewRegistry()
	commands.Register(reg)
	return reg
}

func TestEnforceTimingModesAllowsFirstMessage(t *testing.T) {
	s := &Server{slowSeconds: 5, dupSlowSeconds: 30, followSeconds: 600}
	user := model.User{CreatedAt: 0, LastMessage: "", LastMessageTime: 0}

	wait, _ := s.enforceTimingModes(user, "hello", 1000)
	assert.False(t, wait)
}

func TestEnforceTimingModesBlocksWithinSlowWindow(t *testing.T) {
	s := &Server{slowSeconds: 5, dupSlowSeconds: 30, followSeconds: 0}
	user := model.User{CreatedAt: 0, LastMessage: "prior", LastMessageTime: 100}

	wait, msg := s.enforceTimingModes(user, "new message", 102)
	assert.True(t, wait)
	assert.Contains(t, msg, "Slow down")
}

func TestEnforceTimingModesDuplicateUsesDuplicateWindow(t *testing.T) {
	s := &Server{slowSeconds: 5, dupSlowSeconds: 30, followSeconds: 0}
	user := model.User{CreatedAt: 0, LastMessage: "same", LastMessageTime: 100}

	// past the 5s slow window (10s elapsed) but identical to the last
	// message, so the longer 30s duplicate window still blocks it.
	wait, msg := s.enforceTimingModes(user, "same", 110)
	assert.True(t, wait)
	assert.Contains(t, msg, "repeat")
}

func TestEnforceTimingModesBlocksNewAccountsUnderFollowMode(t *testing.T) {
	s := &Server{slowSeconds: 0, dupSlowSeconds: 0, followSeconds: 600}
	user := model.User{CreatedAt: 1000, LastMessage: "", LastMessageTime: 0}

	wait, msg := s.enforceTimingModes(user, "hi", 1100)
	assert.True(t, wait)
	assert.Contains(t, msg, "New here")
}

func TestEnforceTimingModesZeroThresholdsDisableChecks(t *testing.T) {
	s := &Server{slowSeconds: 0, dupSlowSeconds: 0, followSeconds: 0}
	user := model.User{CreatedAt: 1000, LastMessage: "same", LastMessageTime: 1000}

	wait, _ := s.enforceTimingModes(user, "same", 1000)
	assert.False(t, wait)
}

func newPublishServer(users *fakeUsers) (*Server, *fakeMessages) {
	messages := &fakeMessages{}
	s := &Server{
		cfg:      &config.Config{BotName: "kcbot", MaxChatLength: 500},
		reg:      registry.New(),
		cmds:     commandsRegistryForTest(),
		users:    users,
		messages: messages,
	}
	return s, messages
}

func messageFrame(t *testing.T, text string) InboundFrame {
	t.Helper()
	data, err := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: text})
	require.NoError(t, err)
	return InboundFrame{Type: FrameMessage, Data: data}
}

func TestPublishMessageRejectsBannedUser(t *testing.T) {
	users := newFakeUsers()
	users.byID[1] = model.User{ID: 1, DisplayName: "alice", BannedUntil: 9999999999}
	s, _ := newPublishServer(users)
	c := NewConn(1, nil, "host", nil, nil)

	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, "hello"))

	frames := drainConn(c)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), StatusBanned)
}

func TestPublishMessageRejectsNamelessUser(t *testing.T) {
	users := newFakeUsers()
	users.byID[1] = model.User{ID: 1}
	s, _ := newPublishServer(users)
	c := NewConn(1, nil, "host", nil, nil)

	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, "hello"))

	frames := drainConn(c)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), StatusRename)
}

func TestPublishMessageIgnoresMessageThatStripsToEmpty(t *testing.T) {
	users := newFakeUsers()
	users.byID[1] = model.User{ID: 1, DisplayName: "alice"}
	s, messages := newPublishServer(users)
	c := NewConn(1, nil, "host", nil, nil)

	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, string(rune(0x200B))+"  "))

	assert.Empty(t, messages.inserted)
	assert.Empty(t, drainConn(c))
}

func TestPublishMessageBroadcastsOrdinaryChatAndEchoesAccepted(t *testing.T) {
	users := newFakeUsers()
	users.byID[1] = model.User{ID: 1, DisplayName: "alice"}
	s, messages := newPublishServer(users)
	c := NewConn(1, nil, "host", nil, nil)
	s.reg.Insert(1, c)

	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, "hello there"))

	require.Len(t, messages.inserted, 1)
	assert.Equal(t, "hello there", messages.inserted[0].Message)
	assert.Equal(t, "hello there", users.byID[1].LastMessage)

	frames := drainConn(c)
	// the broadcast chat frame (c is registered) + the accepted echo.
	require.Len(t, frames, 2)
	var accepted OutboundFrame
	require.NoError(t, json.Unmarshal(frames[1], &accepted))
	assert.Equal(t, FrameAccepted, accepted.Type)
}

func TestPublishMessageDispatchesBangCommandPrivately(t *testing.T) {
	users := newFakeUsers()
	users.byID[1] = model.User{ID: 1, DisplayName: "alice", AuthLevel: model.AuthAdmin}
	s, messages := newPublishServer(users)
	c := NewConn(1, nil, "host", nil, nil)
	s.reg.Insert(1, c)

	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, "!info"))

	// the command response is delivered privately to the caller (not
	// broadcast as ordinary chat), then the accepted echo follows.
	frames := drainConn(c)
	require.Len(t, frames, 2)
	var serverMsg OutboundFrame
	require.NoError(t, json.Unmarshal(frames[0], &serverMsg))
	assert.Equal(t, FrameServerMsg, serverMsg.Type)
	assert.Empty(t, messages.inserted, "a private command reply is not persisted as chat history")
	assert.Empty(t, users.byID[1].LastMessage, "a private command must not overwrite last_message")
}

func TestPublishMessageSlowModeAndDuplicateSlowModeAreIndependent(t *testing.T) {
	users := newFakeUsers()
	now := time.Now().Unix()
	users.byID[1] = model.User{ID: 1, DisplayName: "alice", LastMessage: "hi", LastMessageTime: now}
	s, _ := newPublishServer(users)
	s.slowSeconds = 5
	s.dupSlowSeconds = 30
	c := NewConn(1, nil, "host", nil, nil)
	s.reg.Insert(1, c)

	// a brand new (non-duplicate) message arriving within the slow-mode
	// window must still be blocked by slow mode, even though it would
	// never trip the duplicate check.
	s.publishMessage(context.Background(), c, users.byID[1], messageFrame(t, "a new message"))

	frames := drainConn(c)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), "Slow down")
}

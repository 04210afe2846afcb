package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/model"
	"codeberg.org/kcchat/server/internal/registry"
)

func newTestServer() (*Server, *fakeMessages) {
	messages := &fakeMessages{}
	return &Server{
		cfg:         &config.Config{BotName: "kcbot", BotColor: "#000", MaxChatLength: 500},
		reg:         registry.New(),
		messages:    messages,
		bannedWords: []string{"badword"},
	}, messages
}

func TestContainsBannedWordIsCaseInsensitive(t *testing.T) {
	s, _ := newTestServer()
	assert.True(t, s.containsBannedWord("this has a BadWord in it"))
	assert.False(t, s.containsBannedWord("this is clean"))
}

func TestBroadcastChatDropsButStillPersistsBannedWord(t *testing.T) {
	s, messages := newTestServer()
	sock := &fakeSocket{}
	s.reg.Insert(1, sock)

	user := model.User{ID: 1, DisplayName: "alice"}
	s.broadcastChat(context.Background(), user, "contains badword here", "")

	require.Len(t, messages.inserted, 1)
	assert.True(t, messages.inserted[0].Dropped)
	assert.Empty(t, sock.sent, "a dropped message must not be fanned out")
}

func TestBroadcastChatFansOutCleanMessage(t *testing.T) {
	s, messages := newTestServer()
	sock := &fakeSocket{}
	s.reg.Insert(1, sock)

	user := model.User{ID: 1, DisplayName: "alice"}
	s.broadcastChat(context.Background(), user, "hello <b>world</b>", "")

	require.Len(t, messages.inserted, 1)
	assert.False(t, messages.inserted[0].Dropped)
	require.Len(t, sock.sent, 1)
	assert.NotContains(t, string(sock.sent[0]), "<b>", "html must be escaped in the outbound frame")
}

func TestBroadcastBotMessageUsesBotIdentity(t *testing.T) {
	s, messages := newTestServer()
	sock := &fakeSocket{}
	s.reg.Insert(0, sock)

	s.broadcastBotMessage(context.Background(), "hi from the bot")

	require.Len(t, messages.inserted, 1)
	assert.Equal(t, int64(0), messages.inserted[0].UserID)
	require.Len(t, sock.sent, 1)
}

func TestDeliverReplyPublicBroadcastsWithAuthorPrefix(t *testing.T) {
	s, messages := newTestServer()
	sock := &fakeSocket{}
	s.reg.Insert(0, sock)

	requester := model.User{ID: 5, DisplayName: "bob"}
	s.deliverReply(context.Background(), requester, true, commands.Response{Public: true, Message: "pong"})

	require.Len(t, messages.inserted, 1)
	assert.Contains(t, messages.inserted[0].Message, "@bob")
}

func TestDeliverReplyPrivateWithAuthorSendsOnlyToRequester(t *testing.T) {
	s, _ := newTestServer()
	requesterSock := &fakeSocket{}
	otherSock := &fakeSocket{}
	s.reg.Insert(5, requesterSock)
	s.reg.Insert(6, otherSock)

	requester := model.User{ID: 5, DisplayName: "bob"}
	s.deliverReply(context.Background(), requester, true, commands.Response{Public: false, Message: "private pong"})

	assert.Len(t, requesterSock.sent, 1)
	assert.Empty(t, otherSock.sent)
}

func TestDeliverReplyPrivateWithoutAuthorDoesNotTouchSockets(t *testing.T) {
	s, _ := newTestServer()
	sock := &fakeSocket{}
	s.reg.Insert(0, sock)

	s.deliverReply(context.Background(), model.User{}, false, commands.Response{Public: false, Message: "console only"})

	assert.Empty(t, sock.sent)
}

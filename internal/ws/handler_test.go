package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/kcchat/server/internal/auth"
	"codeberg.org/kcchat/server/internal/chat"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/model"
	"codeberg.org/kcchat/server/internal/overlay"
)

type stubUsers struct{}

func (stubUsers) FindByID(context.Context, int64) (model.User, error) { return model.User{}, nil }
func (stubUsers) FindByName(context.Context, string) (model.User, bool, error) {
	return model.User{}, false, nil
}
func (stubUsers) FindOrCreateByProviderID(context.Context, string) (model.User, error) {
	return model.User{}, nil
}
func (stubUsers) UpdateLastMessage(context.Context, int64, string, int64) error { return nil }
func (stubUsers) UpdateDisplayName(context.Context, int64, string, int64) error { return nil }
func (stubUsers) UpdateDisplayColor(context.Context, int64, string) error       { return nil }
func (stubUsers) SetBan(context.Context, string, int64, model.AuthLevel) (int64, bool, error) {
	return 0, false, nil
}
func (stubUsers) Unban(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (stubUsers) SetAuthLevel(context.Context, string, model.AuthLevel, model.AuthLevel) (int64, bool, error) {
	return 0, false, nil
}

type stubMessages struct{}

func (stubMessages) Insert(context.Context, model.Message) (int64, error) { return 0, nil }
func (stubMessages) DropByUser(context.Context, int64) ([]int64, error)  { return nil, nil }
func (stubMessages) DropByID(context.Context, []int64) ([]int64, error) { return nil, nil }
func (stubMessages) Recent(context.Context, int) ([]model.HistoryMessage, error) { return nil, nil }

type stubResponses struct{}

func (stubResponses) LoadAll(context.Context) ([]model.SimpleResponse, error) { return nil, nil }
func (stubResponses) Add(context.Context, string, string) error               { return nil }
func (stubResponses) Edit(context.Context, string, string) error              { return nil }
func (stubResponses) Remove(context.Context, string) error                    { return nil }

type stubBannedHosts struct{}

func (stubBannedHosts) Insert(context.Context, string, int64, int64) error { return nil }
func (stubBannedHosts) IsBanned(context.Context, string, int64) (bool, error) {
	return false, nil
}

type stubRuntimeConfig struct{}

func (stubRuntimeConfig) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (stubRuntimeConfig) Set(context.Context, string, string) error         { return nil }

type stubTransactions struct{}

func (stubTransactions) Insert(context.Context, model.Transaction) error { return nil }

type stubOverlay struct{}

func (stubOverlay) Alert(string, string) {}
func (stubOverlay) Command(string)       {}

type stubProvider struct{}

func (stubProvider) ID() string { return "google" }
func (stubProvider) Authenticate(context.Context, string) (int64, error) { return 1, nil }

func newTestChatServer(t *testing.T) *chat.Server {
	t.Helper()
	s := chat.NewServer(
		&config.Config{BotName: "kcbot", MaxChatLength: 500},
		chat.Stores{
			Users:         stubUsers{},
			Messages:      stubMessages{},
			Responses:     stubResponses{},
			BannedHosts:   stubBannedHosts{},
			RuntimeConfig: stubRuntimeConfig{},
			Transactions:  stubTransactions{},
		},
		auth.NewRegistry(stubProvider{}),
		stubOverlay{},
		nil,
	)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestChatHandlerUpgradesAndRoutesHello(t *testing.T) {
	s := newTestChatServer(t)
	srv := httptest.NewServer(ChatHandler(s))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`)))

	// hello replies with the bot's join frame (no history in this test's
	// empty store) before the status frame; read until status arrives.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var last string
	for i := 0; i < 5; i++ {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		last = string(data)
		if strings.Contains(last, "unauthenticated") {
			break
		}
	}
	assert.Contains(t, last, "unauthenticated")
}

func TestOverlayHandlerUpgradesAndAcceptsConnection(t *testing.T) {
	d := overlay.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	srv := httptest.NewServer(OverlayHandler(d))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	d.Alert("title", "subtitle")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "title")
}

func TestRemoteHostPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", remoteHost(req))

	req2 := httptest.NewRequest("GET", "/", nil)
	req2.RemoteAddr = "192.168.1.5:9999"
	assert.Equal(t, "192.168.1.5", remoteHost(req2))
}

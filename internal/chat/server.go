// Package chat implements the WebSocket chat relay core: the
// per-connection state machine, the admission and publish pipelines,
// the command dispatch glue, and donation verification (spec.md §4.1,
// §4.2, §4.6). Server is the single goroutine that owns all of it.
package chat

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/kcchat/server/internal/auth"
	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
	"codeberg.org/kcchat/server/internal/registry"
)

// connPhase is the per-connection lifecycle state spec.md §4.1 names.
type connPhase int

const (
	phaseNew connPhase = iota
	phaseHelloSent
)

type connState struct {
	conn   *Conn
	phase  connPhase
	userID int64
}

// event is the single inbound-event union the loop selects over
// (SPEC_FULL.md §5): frames off the wire, connection closes, completed
// background HTTP calls, console submissions, snapshot requests, and
// the periodic tick (handleTick currently does nothing).
type event interface{ isEvent() }

type frameEvent struct {
	conn *Conn
	raw  []byte
}

type closeEvent struct{ conn *Conn }

// httpCompletionEvent carries a closure back onto the loop once a
// background goroutine's blocking HTTP call returns, so the actual
// state mutation happens on the single owning goroutine.
type httpCompletionEvent struct{ run func() }

// consoleCommandEvent is a stdin-originated admin command (cmd/console)
// submitted with no author, per spec.md §4.1.2's interactive-admin path.
type consoleCommandEvent struct {
	line  string
	reply chan commands.Response
}

type tickEvent struct{}

// snapshotEvent is a read-only state request, submitted from
// internal/httpapi's admin-snapshot handler, which runs on an HTTP
// goroutine and so must never touch Server fields directly.
type snapshotEvent struct {
	reply chan Snapshot
}

func (frameEvent) isEvent()          {}
func (closeEvent) isEvent()          {}
func (httpCompletionEvent) isEvent() {}
func (consoleCommandEvent) isEvent() {}
func (tickEvent) isEvent()           {}
func (snapshotEvent) isEvent()       {}

// Snapshot is a point-in-time read of loop state safe to serialize as
// JSON, served by internal/httpapi's /admin/snapshot endpoint.
type Snapshot struct {
	ConnectedSockets int    `json:"connected_sockets"`
	ConnectedUsers   int    `json:"connected_users"`
	BotName          string `json:"bot_name"`
}

// Server is the sole owner of the registry, the command registry, the
// timer map, and every store handle; it is only ever touched from
// Run's goroutine.
type Server struct {
	cfg *config.Config

	reg  *registry.Registry
	cmds *commands.Registry
	auth *auth.Registry

	// Each store concern is held as its own narrow interface rather than
	// one bundled type: MessageStore and BannedHostStore both declare an
	// Insert method with a different signature, so a single embedding
	// interface satisfying both is not expressible in Go.
	users         UserStore
	messages      MessageStore
	responses     ResponseStore
	bannedHosts   BannedHostStore
	runtimeConfig RuntimeConfigStore
	transactions  TransactionStore

	overlay OverlaySink

	events chan event
	conns  map[int64]*connState

	bannedWords []string

	// payPalBearerToken is process-global mutable state shared only
	// within the chat loop (spec.md §5), refreshed lazily by donation.go.
	payPalBearerToken string

	timers map[string]int64

	slowSeconds, dupSlowSeconds, followSeconds, renameCooldownSeconds int64

	// nextConnID hands out locally-unique Conn ids to NewConn; it is
	// safe for concurrent use since WebSocket upgrade handlers run on
	// arbitrary HTTP goroutines, not the loop goroutine.
	nextConnID atomic.Int64
}

// Stores bundles the concrete repositories NewServer wires in, one
// field per store interface in store.go.
type Stores struct {
	Users         UserStore
	Messages      MessageStore
	Responses     ResponseStore
	BannedHosts   BannedHostStore
	RuntimeConfig RuntimeConfigStore
	Transactions  TransactionStore
}

// NewServer wires the event loop. bannedWords is the startup-loaded
// banned-substring set (spec.md §4.1.1); it is refreshed only by
// restart, matching the teacher's load-once config idiom.
func NewServer(cfg *config.Config, stores Stores, authReg *auth.Registry, overlay OverlaySink, bannedWords []string) *Server {
	s := &Server{
		cfg:                   cfg,
		reg:                   registry.New(),
		cmds:                  commands.NewRegistry(),
		auth:                  authReg,
		users:                 stores.Users,
		messages:              stores.Messages,
		responses:             stores.Responses,
		bannedHosts:           stores.BannedHosts,
		runtimeConfig:         stores.RuntimeConfig,
		transactions:          stores.Transactions,
		overlay:               overlay,
		events:                make(chan event, 256),
		conns:                 make(map[int64]*connState),
		bannedWords:           bannedWords,
		timers:                make(map[string]int64),
		slowSeconds:           0,
		dupSlowSeconds:        30,
		followSeconds:         600,
		renameCooldownSeconds: 2592000,
	}
	commands.Register(s.cmds)
	return s
}

// LoadSimpleResponses seeds the command registry with every dynamic
// !command persisted in storage. Call once, before Run, from the
// constructing goroutine — s.cmds is not yet shared with the loop.
func (s *Server) LoadSimpleResponses(ctx context.Context) error {
	all, err := s.responses.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, r := range all {
		s.cmds.Register(r.Command, model.AuthUser, false, simpleResponseHandler(r.Response))
	}
	return nil
}

// NewConn wraps an upgraded WebSocket in a Conn wired back to this
// loop, ready for Accept and the pumps. Call from the WebSocket
// upgrade handler; it must not be called from the loop goroutine.
func (s *Server) NewConn(ws *websocket.Conn, remoteHost string) *Conn {
	id := s.nextConnID.Add(1)
	return NewConn(id, ws, remoteHost, s.onFrame, s.onClose)
}

// Accept registers a brand-new connection with the loop. It does not
// start the connection's I/O pumps; the WebSocket upgrade handler that
// calls it starts them afterwards.
func (s *Server) Accept(c *Conn) {
	s.events <- frameEvent{conn: c, raw: nil}
}

// onFrame is passed to NewConn; it only ever enqueues.
func (s *Server) onFrame(c *Conn, raw []byte) {
	s.events <- frameEvent{conn: c, raw: raw}
}

// onClose is passed to NewConn; it only ever enqueues.
func (s *Server) onClose(c *Conn) {
	s.events <- closeEvent{conn: c}
}

// SubmitConsoleCommand is cmd/console's entry point for an
// interactively typed admin command; it blocks until the loop replies.
func (s *Server) SubmitConsoleCommand(line string) commands.Response {
	reply := make(chan commands.Response, 1)
	s.events <- consoleCommandEvent{line: line, reply: reply}
	return <-reply
}

// Snapshot is internal/httpapi's entry point for the admin data feed;
// it blocks until the loop replies.
func (s *Server) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	s.events <- snapshotEvent{reply: reply}
	return <-reply
}

// Run is the event loop goroutine. It never returns until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handleTick(ctx)
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Server) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case frameEvent:
		if e.raw == nil {
			s.handleAccept(e.conn)
			return
		}
		s.handleFrame(ctx, e.conn, e.raw)
	case closeEvent:
		s.handleDisconnect(e.conn)
	case httpCompletionEvent:
		e.run()
	case consoleCommandEvent:
		e.reply <- s.handleConsoleCommand(ctx, e.line)
	case tickEvent:
		s.handleTick(ctx)
	case snapshotEvent:
		e.reply <- s.handleSnapshot()
	}
}

func (s *Server) handleSnapshot() Snapshot {
	return Snapshot{
		ConnectedSockets: s.reg.Len(),
		ConnectedUsers:   s.reg.UserCount(),
		BotName:          s.botName(),
	}
}

func (s *Server) handleAccept(c *Conn) {
	s.conns[c.ID()] = &connState{conn: c, phase: phaseNew}
}

func (s *Server) handleDisconnect(c *Conn) {
	if _, ok := s.conns[c.ID()]; !ok {
		return
	}
	delete(s.conns, c.ID())

	if part := s.reg.Remove(c); part != 0 {
		s.reg.Broadcast(encodeFrame(FramePart, PartPayload{UserID: part}))
	}
}

func (s *Server) handleTick(_ context.Context) {
	// placeholder for periodic housekeeping (token-cache GC is driven by
	// internal/store/postgres.GC on its own schedule, not this tick).
}

// handleFrame implements spec.md §4.1's per-connection state machine
// and admission pipeline.
func (s *Server) handleFrame(ctx context.Context, c *Conn, raw []byte) {
	st, ok := s.conns[c.ID()]
	if !ok {
		return
	}

	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return
	}

	if in.Type == FrameHello {
		s.handleHello(ctx, c, st)
		return
	}

	now := time.Now()
	if !c.Allow(now.UnixMilli()) {
		// first check; no authentication performed on discarded frames.
		return
	}

	if banned, err := s.bannedHosts.IsBanned(ctx, c.RemoteHost(), now.Unix()); err == nil && banned {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusBanned}))
		return
	} else if err != nil {
		logger.ErrorErr(err, "banned-host lookup failed", "host", c.RemoteHost())
	}

	if in.Token == "" || in.Auth == "" {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusUnauthenticated}))
		return
	}

	provider, ok := s.auth.Find(in.Auth)
	if !ok {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusUnauthenticated}))
		return
	}

	// Provider.Authenticate may perform a blocking HTTP call; run it off
	// the loop and re-enter with the result so frame N+1 keeps moving
	// (SPEC_FULL.md §5).
	go func() {
		userID, err := provider.Authenticate(ctx, in.Token)
		s.events <- httpCompletionEvent{run: func() {
			if err != nil {
				c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusUnauthenticated}))
				return
			}
			s.dispatchAuthenticated(ctx, c, st, userID, in)
		}}
	}()
}

// historyLength is the number of recent non-dropped messages replayed
// on hello, matching the original's HISTORY_LENGTH (chatserver.cpp:939).
const historyLength = 50

// handleHello implements spec.md §4.1's NEW -> HELLO_SENT transition:
// register the socket as an observer, replay recent history and the
// current roster, then report unauthenticated status.
func (s *Server) handleHello(ctx context.Context, c *Conn, st *connState) {
	st.phase = phaseHelloSent
	s.reg.Insert(0, c)

	history, err := s.messages.Recent(ctx, historyLength)
	if err != nil {
		logger.ErrorErr(err, "load recent history failed")
	}
	for _, m := range history {
		author, color, level := m.AuthorName, m.AuthorColor, m.AuthorLevel
		if m.UserID == 0 {
			author, color, level = s.botName(), s.cfg.BotColor, model.AuthMod
		}
		c.Send(encodeFrame(FrameChat, ChatPayload{
			ID:          m.ID,
			Time:        m.Time,
			Author:      author,
			AuthorID:    m.UserID,
			AuthorColor: color,
			AuthorLevel: int(level),
			Message:     html.EscapeString(m.Message),
			Auth:        int(level),
			DonateValue: m.DonateValue,
		}))
	}

	c.Send(encodeFrame(FrameJoin, JoinPayload{UserID: 0, DisplayName: s.botName()}))
	for _, uid := range s.reg.Authors() {
		user, err := s.users.FindByID(ctx, uid)
		if err != nil || user.DisplayName == "" {
			continue
		}
		c.Send(encodeFrame(FrameJoin, JoinPayload{UserID: uid, DisplayName: user.DisplayName}))
	}

	c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusUnauthenticated}))
}

// dispatchAuthenticated re-registers c under userID on any authenticated
// frame (the generalized re-registration rule recorded in DESIGN.md)
// and dispatches by frame type.
func (s *Server) dispatchAuthenticated(ctx context.Context, c *Conn, st *connState, userID int64, in InboundFrame) {
	joined := s.reg.Insert(userID, c)
	st.userID = userID

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.ErrorErr(err, "load user failed", "user_id", userID)
		c.Send(encodeFrame(FrameServerMsg, ServerMsgPayload{Message: "Internal server error"}))
		return
	}

	if joined {
		s.reg.Broadcast(encodeFrame(FrameJoin, JoinPayload{UserID: userID, DisplayName: user.DisplayName}))
	}
	c.Send(encodeFrame(FrameAuthLevel, AuthLevelPayload{AuthLevel: int(user.AuthLevel)}))

	switch in.Type {
	case FrameStatus:
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusAuthenticated}))
	case FrameMessage:
		s.publishMessage(ctx, c, user, in)
	case FrameGetUserConf:
		s.handleGetUserConf(c, user)
	case FrameSetUserConf:
		s.handleSetUserConf(ctx, c, user, in)
	case FramePayPal:
		s.handleDonation(ctx, c, user, in)
	}
}

func (s *Server) handleConsoleCommand(ctx context.Context, line string) commands.Response {
	fields := tokenize(strings.TrimSpace(line))
	if len(fields) == 0 {
		return commands.Response{}
	}
	req := commands.Request{
		Verb:      strings.ToLower(fields[0]),
		Args:      fields[1:],
		AuthorID:  0,
		AuthLevel: model.AuthAdmin,
		HasAuthor: false,
	}
	resp := s.cmds.Dispatch(s.servicesFor(ctx), req)
	if resp.Public {
		s.deliverReply(ctx, model.User{}, false, resp)
	}
	return resp
}

func (s *Server) now() int64 { return time.Now().Unix() }

func (s *Server) botName() string { return s.cfg.BotName }

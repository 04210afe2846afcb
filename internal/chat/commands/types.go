// Package commands implements the ordered command registry and the
// built-in command verbs described in spec.md §4.2. It depends only on
// internal/model and the small Services interface below, so it can be
// unit-tested without a real store, registry, or WebSocket connection.
package commands

import "codeberg.org/kcchat/server/internal/model"

// Request is one parsed, tokenized command invocation.
type Request struct {
	// Verb is the lowercased command name (args[0]).
	Verb string
	// Args is everything after the verb, in tokenized order.
	Args []string
	// AuthorID is 0 for an unauthenticated/backdoor-prevented caller.
	AuthorID int64
	// AuthLevel is the caller's resolved authorization tier.
	AuthLevel model.AuthLevel
	// HasAuthor mirrors the original's request.hasAuthor(): false only
	// for the admin console's stdin-style invocations, which print a
	// non-public response instead of broadcasting it (spec.md §9).
	HasAuthor bool
	// AuthorName is the caller's current display name, needed by
	// handlers that build a reply ("<name> banned until ...").
	AuthorName string
}

// Response is a command's result. An empty Message is "invalid" per
// spec.md's Response.isValid() == !message.isEmpty().
type Response struct {
	Message string
	Public  bool
}

// Valid reports whether the response carries any text.
func (r Response) Valid() bool {
	return r.Message != ""
}

// ErrorResponse is a private Response carrying msg.
func ErrorResponse(msg string) Response {
	return Response{Message: msg}
}

// PublicResponse is a public Response carrying msg.
func PublicResponse(msg string) Response {
	return Response{Message: msg, Public: true}
}

// Handler implements one command verb. reg is the owning registry,
// passed through so self-referential verbs (addcom, editcom, delcom,
// commands, help) can inspect or mutate it.
type Handler func(svc Services, reg *Registry, req Request) Response

// Services is everything a handler may need from the owning chat loop,
// kept deliberately small so this package has no dependency on
// internal/chat, internal/store, or internal/registry.
type Services interface {
	// Now returns the current unix-seconds time.
	Now() int64
	// BotName is the configured bot display name.
	BotName() string

	// FindUserByName resolves a display name to a user, or ok=false.
	FindUserByName(name string) (model.User, bool, error)
	// SetBan updates banned_at/banned_until for name, refusing ADMIN
	// targets. ok is false if no matching non-admin user was found.
	SetBan(name string, until int64) (userID int64, ok bool, err error)
	// SetAuthLevel sets a user's auth level, refusing ADMIN targets.
	SetAuthLevel(name string, level model.AuthLevel) (userID int64, ok bool, err error)
	// Unban clears a user's ban unconditionally.
	Unban(name string) (userID int64, ok bool, err error)
	// DropMessages soft-deletes every not-yet-dropped message of userID
	// and returns the ids actually dropped.
	DropMessages(userID int64) ([]int64, error)
	// DeleteMessages soft-deletes the given explicit message ids.
	DeleteMessages(ids []int64) ([]int64, error)
	// InsertBannedHosts bans every host currently connected for userID.
	InsertBannedHosts(userID int64, until int64) (count int, err error)
	// SetVideo updates the runtime "video" config row.
	SetVideo(id string) error

	// NotifyBanned sends a banned-status frame to every live socket of
	// userID.
	NotifyBanned(userID int64)
	// NotifyUnbanned refreshes every live socket of userID with current
	// user state after an unban.
	NotifyUnbanned(userID int64)
	// NotifyAuthLevel sends an updated authlevel frame to every live
	// socket of userID.
	NotifyAuthLevel(userID int64, level model.AuthLevel)
	// BroadcastDelete tells every connected socket to redact ids.
	BroadcastDelete(ids []int64)

	// EmitAlert sends an overlay alert event.
	EmitAlert(title, subtitle string)
	// EmitOverlayCommand sends an overlay TTS-control event.
	EmitOverlayCommand(name string)

	// AddSimpleResponse persists and registers a new dynamic command.
	AddSimpleResponse(verb, response string) error
	// EditSimpleResponse updates an existing dynamic command's text.
	EditSimpleResponse(verb, response string) error
	// RemoveSimpleResponse deletes a dynamic command.
	RemoveSimpleResponse(verb string) error
	// IsBuiltIn reports whether verb is a compiled-in handler (not a
	// SimpleResponse), used to reject editcom/delcom on built-ins.
	IsBuiltIn(verb string) bool

	// TimerStart records name's start time, failing if it already
	// exists.
	TimerStart(name string) bool
	// TimerElapsed returns the elapsed seconds for name, or ok=false.
	TimerElapsed(name string) (elapsed int64, ok bool)
	// TimerStop returns the elapsed seconds for name and removes it.
	TimerStop(name string) (elapsed int64, ok bool)

	// Limits returns the currently configured slow/duplicate-slow/
	// follow-mode thresholds in seconds, for the `info` command.
	Limits() (slow, duplicateSlow, follow int64)
	// SetSlowMode / SetFollowMode mutate those thresholds.
	SetSlowMode(seconds int64)
	SetFollowMode(seconds int64)
}

// Package ws upgrades raw net/http connections on the chat and overlay
// listen ports into the Conn/socket types internal/chat and
// internal/overlay own. Grounded on the teacher's api/websocket
// handler's upgrade-then-launch-pumps shape, adapted from gin to plain
// net/http since the chat and overlay ports carry nothing else.
package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"codeberg.org/kcchat/server/internal/chat"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/overlay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ChatHandler upgrades every request on the chat port and hands the
// resulting Conn to s, starting its read/write pumps.
func ChatHandler(s *chat.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorErr(err, "chat websocket upgrade failed", "remote", r.RemoteAddr)
			return
		}

		c := s.NewConn(conn, remoteHost(r))
		s.Accept(c)

		go c.WritePump()
		go c.ReadPump()
	})
}

// OverlayHandler upgrades every request on the overlay port and runs
// it through d.Accept, which owns both pumps itself since overlay
// clients are receive-only.
func OverlayHandler(d *overlay.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorErr(err, "overlay websocket upgrade failed", "remote", r.RemoteAddr)
			return
		}

		d.Accept(conn)
	})
}

// remoteHost extracts the peer address banned-host checks key on,
// preferring a proxy's X-Forwarded-For over the raw socket address.
func remoteHost(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if host, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(host)
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}

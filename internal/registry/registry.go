// Package registry implements the dual-index user-id ↔ socket mapping
// described in spec.md §4.3. It is owned exclusively by the chat event
// loop (see internal/chat) and is not safe for concurrent use from
// multiple goroutines — that single-owner contract is what lets every
// other package treat registry mutations as atomic with respect to
// frame processing.
package registry

// Socket is the minimal surface the registry needs from a connection;
// internal/chat's connection type satisfies it.
type Socket interface {
	// Send delivers a pre-encoded frame to the peer. It must be a no-op
	// (not a panic) if the underlying connection is already closed,
	// since in-flight callbacks may still hold a reference to a socket
	// that has since disconnected (spec.md §5).
	Send(frame []byte)
}

// Registry is the dual index: user-id -> sockets, and socket -> user-id.
// Sockets registered under user-id 0 are observers.
type Registry struct {
	byUser   map[int64][]Socket
	byUserID map[Socket]int64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byUser:   make(map[int64][]Socket),
		byUserID: make(map[Socket]int64),
	}
}

// Insert registers sock under author. It returns true iff this is the
// first live socket for a non-zero author — the caller uses that edge
// to broadcast a join event. Re-inserting the same socket under the
// same author is idempotent.
func (r *Registry) Insert(author int64, sock Socket) bool {
	joined := false

	if author != 0 {
		existing := r.byUser[author]
		joined = len(existing) == 0

		found := false
		for _, s := range existing {
			if s == sock {
				found = true
				break
			}
		}
		if !found {
			r.byUser[author] = append(existing, sock)
		}
	}

	r.byUserID[sock] = author
	return joined
}

// Remove unregisters sock entirely. If sock was the last live socket
// for a non-zero author, Remove returns that author so the caller can
// broadcast a part event; otherwise it returns 0.
func (r *Registry) Remove(sock Socket) int64 {
	author, ok := r.byUserID[sock]
	if !ok {
		return 0
	}
	delete(r.byUserID, sock)

	if author == 0 {
		return 0
	}

	sockets := r.byUser[author]
	for i, s := range sockets {
		if s == sock {
			sockets = append(sockets[:i], sockets[i+1:]...)
			break
		}
	}

	if len(sockets) == 0 {
		delete(r.byUser, author)
		return author
	}

	r.byUser[author] = sockets
	return 0
}

// SocketsFor returns the live sockets registered under author.
func (r *Registry) SocketsFor(author int64) []Socket {
	return r.byUser[author]
}

// AuthorOf returns the author currently registered for sock, or 0 if
// sock is not registered (or registered as an observer).
func (r *Registry) AuthorOf(sock Socket) int64 {
	return r.byUserID[sock]
}

// Broadcast sends frame to every registered socket, including
// observers.
func (r *Registry) Broadcast(frame []byte) {
	for sock := range r.byUserID {
		sock.Send(frame)
	}
}

// Len returns the number of registered sockets.
func (r *Registry) Len() int {
	return len(r.byUserID)
}

// UserCount returns the number of distinct authenticated authors with
// at least one live socket (observers registered under author 0 are
// not counted).
func (r *Registry) UserCount() int {
	return len(r.byUser)
}

// Authors returns every distinct non-zero author currently holding at
// least one live socket, in no particular order. Used to build the
// roster replayed to a newly connected socket on hello.
func (r *Registry) Authors() []int64 {
	authors := make([]int64, 0, len(r.byUser))
	for author := range r.byUser {
		authors = append(authors, author)
	}
	return authors
}

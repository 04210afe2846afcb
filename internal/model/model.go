// Package model holds the entities shared across the chat relay: users,
// messages, simple responses, bans, and the permanent-ban sentinel.
package model

// AuthLevel is a user's authorization tier. Values match the ordering
// the command registry's min-auth checks depend on.
type AuthLevel int

const (
	AuthUser  AuthLevel = 0
	AuthMember AuthLevel = 20
	AuthMod   AuthLevel = 50
	AuthAdmin AuthLevel = 100
)

func (a AuthLevel) String() string {
	switch a {
	case AuthUser:
		return "user"
	case AuthMember:
		return "member"
	case AuthMod:
		return "mod"
	case AuthAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// PermanentBan is JS's Number.MAX_SAFE_INTEGER, used so the ban horizon
// survives a round-trip through a client that parses it as a float64.
const PermanentBan int64 = 9007199254740991

// User is the persistent account row. A freshly created user has an
// empty DisplayName and sees StatusRename on its next authenticated
// action.
type User struct {
	ID                    int64
	DisplayName           string
	DisplayColor          string
	AuthLevel             AuthLevel
	LastMessage           string
	LastMessageTime        int64
	BannedAt              int64
	BannedUntil           int64
	DisplayNameChangeTime int64
	CreatedAt             int64
}

// Banned reports whether the user is currently serving a ban, given the
// current unix-seconds time.
func (u *User) Banned(now int64) bool {
	return u.BannedUntil > now
}

// Message is one line of chat history. Dropped messages are kept for
// audit but never broadcast or replayed.
type Message struct {
	ID          int64
	UserID      int64
	Time        int64 // unix milliseconds
	Message     string
	Dropped     bool
	Host        string
	DonateValue string
}

// HistoryMessage is one replayed line of chat history, carrying the
// author's display fields as they stand at replay time rather than at
// insert time (spec.md §4.1's hello history burst).
type HistoryMessage struct {
	Message
	AuthorName  string
	AuthorColor string
	AuthorLevel AuthLevel
}

// SimpleResponse is a dynamic !command registered via addcom/editcom.
type SimpleResponse struct {
	Command  string
	Response string
}

// BannedHost is a peer-address ban, independent of any user account.
type BannedHost struct {
	Host    string
	Started int64
	Until   int64
}

// Transaction records one donation-order verification attempt. OrderID
// is unique; a duplicate insert is a replay and must be rejected.
type Transaction struct {
	OrderID     string
	UserID      int64
	TimeReceived int64
	Data        string
	Message     string
	Succeeded   bool
}

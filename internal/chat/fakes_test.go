package chat

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"codeberg.org/kcchat/server/internal/model"
)

// errDuplicateKey mimics the pgx unique-violation shape apierr.IsDuplicateKey
// recognizes, so the fakes can exercise that branch without a real database.
var errDuplicateKey = &pgconn.PgError{Code: "23505"}

// fakeSocket is a minimal registry.Socket double that records every
// frame sent to it, for assertions without a real websocket connection.
type fakeSocket struct {
	sent [][]byte
}

func (f *fakeSocket) Send(frame []byte) {
	f.sent = append(f.sent, frame)
}

// fakeUsers is an in-memory UserStore double.
type fakeUsers struct {
	byID    map[int64]model.User
	byName  map[string]int64
	nextID  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]model.User{}, byName: map[string]int64{}}
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, errors.New("not found")
	}
	return u, nil
}

func (f *fakeUsers) FindByName(_ context.Context, name string) (model.User, bool, error) {
	id, ok := f.byName[name]
	if !ok {
		return model.User{}, false, nil
	}
	return f.byID[id], true, nil
}

func (f *fakeUsers) FindOrCreateByProviderID(_ context.Context, providerID string) (model.User, error) {
	f.nextID++
	u := model.User{ID: f.nextID}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UpdateLastMessage(_ context.Context, userID int64, message string, whenMillis int64) error {
	u := f.byID[userID]
	u.LastMessage = message
	u.LastMessageTime = whenMillis / 1000
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) UpdateDisplayName(_ context.Context, userID int64, name string, whenSeconds int64) error {
	for id, u := range f.byID {
		if id != userID && u.DisplayName == name {
			return errDuplicateKey
		}
	}
	u := f.byID[userID]
	u.DisplayName = name
	u.DisplayNameChangeTime = whenSeconds
	f.byID[userID] = u
	delete(f.byName, u.DisplayName)
	f.byName[name] = userID
	return nil
}

func (f *fakeUsers) UpdateDisplayColor(_ context.Context, userID int64, color string) error {
	u := f.byID[userID]
	u.DisplayColor = color
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) SetBan(_ context.Context, name string, until int64, below model.AuthLevel) (int64, bool, error) {
	id, ok := f.byName[name]
	if !ok {
		return 0, false, nil
	}
	u := f.byID[id]
	if u.AuthLevel >= below {
		return 0, false, nil
	}
	u.BannedUntil = until
	f.byID[id] = u
	return id, true, nil
}

func (f *fakeUsers) Unban(_ context.Context, name string) (int64, bool, error) {
	id, ok := f.byName[name]
	if !ok {
		return 0, false, nil
	}
	u := f.byID[id]
	u.BannedUntil = 0
	f.byID[id] = u
	return id, true, nil
}

func (f *fakeUsers) SetAuthLevel(_ context.Context, name string, level, below model.AuthLevel) (int64, bool, error) {
	id, ok := f.byName[name]
	if !ok {
		return 0, false, nil
	}
	u := f.byID[id]
	if u.AuthLevel >= below {
		return 0, false, nil
	}
	u.AuthLevel = level
	f.byID[id] = u
	return id, true, nil
}

// fakeMessages is an in-memory MessageStore double.
type fakeMessages struct {
	inserted []model.Message
	nextID   int64
}

func (f *fakeMessages) Insert(_ context.Context, msg model.Message) (int64, error) {
	f.nextID++
	msg.ID = f.nextID
	f.inserted = append(f.inserted, msg)
	return msg.ID, nil
}

func (f *fakeMessages) DropByUser(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for i, m := range f.inserted {
		if m.UserID == userID {
			ids = append(ids, m.ID)
			f.inserted[i].Dropped = true
		}
	}
	return ids, nil
}

func (f *fakeMessages) DropByID(_ context.Context, ids []int64) ([]int64, error) {
	var dropped []int64
	for i, m := range f.inserted {
		for _, id := range ids {
			if m.ID == id {
				f.inserted[i].Dropped = true
				dropped = append(dropped, id)
			}
		}
	}
	return dropped, nil
}

// Recent returns the last limit non-dropped messages, oldest first.
// Author display fields are left empty, matching a deleted/unjoined
// author; tests that care about them populate the fields directly.
func (f *fakeMessages) Recent(_ context.Context, limit int) ([]model.HistoryMessage, error) {
	var live []model.HistoryMessage
	for _, m := range f.inserted {
		if m.Dropped {
			continue
		}
		live = append(live, model.HistoryMessage{Message: m})
	}
	if len(live) > limit {
		live = live[len(live)-limit:]
	}
	return live, nil
}

// fakeResponses is an in-memory ResponseStore double.
type fakeResponses struct {
	rows map[string]string
}

func newFakeResponses() *fakeResponses { return &fakeResponses{rows: map[string]string{}} }

func (f *fakeResponses) LoadAll(_ context.Context) ([]model.SimpleResponse, error) {
	var out []model.SimpleResponse
	for cmd, resp := range f.rows {
		out = append(out, model.SimpleResponse{Command: cmd, Response: resp})
	}
	return out, nil
}

func (f *fakeResponses) Add(_ context.Context, command, response string) error {
	if _, ok := f.rows[command]; ok {
		return errDuplicateKey
	}
	f.rows[command] = response
	return nil
}

func (f *fakeResponses) Edit(_ context.Context, command, response string) error {
	f.rows[command] = response
	return nil
}

func (f *fakeResponses) Remove(_ context.Context, command string) error {
	delete(f.rows, command)
	return nil
}

// fakeBannedHosts is an in-memory BannedHostStore double.
type fakeBannedHosts struct {
	rows []model.BannedHost
}

func (f *fakeBannedHosts) Insert(_ context.Context, host string, started, until int64) error {
	f.rows = append(f.rows, model.BannedHost{Host: host, Started: started, Until: until})
	return nil
}

func (f *fakeBannedHosts) IsBanned(_ context.Context, host string, now int64) (bool, error) {
	for _, r := range f.rows {
		if r.Host == host && r.Until > now {
			return true, nil
		}
	}
	return false, nil
}

// fakeRuntimeConfig is an in-memory RuntimeConfigStore double.
type fakeRuntimeConfig struct {
	rows map[string]string
}

func newFakeRuntimeConfig() *fakeRuntimeConfig {
	return &fakeRuntimeConfig{rows: map[string]string{}}
}

func (f *fakeRuntimeConfig) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.rows[key]
	return v, ok, nil
}

func (f *fakeRuntimeConfig) Set(_ context.Context, key, value string) error {
	f.rows[key] = value
	return nil
}

// fakeTransactions is an in-memory TransactionStore double.
type fakeTransactions struct {
	rows []model.Transaction
}

func (f *fakeTransactions) Insert(_ context.Context, tx model.Transaction) error {
	for _, r := range f.rows {
		if r.OrderID == tx.OrderID {
			return errDuplicateKey
		}
	}
	f.rows = append(f.rows, tx)
	return nil
}

// fakeOverlay is an OverlaySink double.
type fakeOverlay struct {
	alerts   []string
	commands []string
}

func (f *fakeOverlay) Alert(title, subtitle string) {
	f.alerts = append(f.alerts, title+"|"+subtitle)
}

func (f *fakeOverlay) Command(name string) {
	f.commands = append(f.commands, name)
}

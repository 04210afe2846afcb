package chat

import (
	"context"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
)

// chatServices binds a Server to a request-scoped context so it can
// satisfy commands.Services without that package ever importing
// context or any store type.
type chatServices struct {
	s   *Server
	ctx context.Context
}

func (s *Server) servicesFor(ctx context.Context) commands.Services {
	return chatServices{s: s, ctx: ctx}
}

func (cs chatServices) Now() int64      { return cs.s.now() }
func (cs chatServices) BotName() string { return cs.s.botName() }

func (cs chatServices) FindUserByName(name string) (model.User, bool, error) {
	return cs.s.users.FindByName(cs.ctx, name)
}

func (cs chatServices) SetBan(name string, until int64) (int64, bool, error) {
	return cs.s.users.SetBan(cs.ctx, name, until, model.AuthAdmin)
}

func (cs chatServices) SetAuthLevel(name string, level model.AuthLevel) (int64, bool, error) {
	return cs.s.users.SetAuthLevel(cs.ctx, name, level, model.AuthAdmin)
}

func (cs chatServices) Unban(name string) (int64, bool, error) {
	return cs.s.users.Unban(cs.ctx, name)
}

func (cs chatServices) DropMessages(userID int64) ([]int64, error) {
	ids, err := cs.s.messages.DropByUser(cs.ctx, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (cs chatServices) DeleteMessages(ids []int64) ([]int64, error) {
	dropped, err := cs.s.messages.DropByID(cs.ctx, ids)
	if err != nil {
		return nil, err
	}
	return dropped, nil
}

func (cs chatServices) InsertBannedHosts(userID int64, until int64) (int, error) {
	now := cs.s.now()
	count := 0
	seen := make(map[string]bool)
	for _, sock := range cs.s.reg.SocketsFor(userID) {
		c, ok := sock.(*Conn)
		if !ok || seen[c.RemoteHost()] {
			continue
		}
		seen[c.RemoteHost()] = true
		if err := cs.s.bannedHosts.Insert(cs.ctx, c.RemoteHost(), now, until); err != nil {
			logger.ErrorErr(err, "insert banned host failed", "host", c.RemoteHost())
			continue
		}
		count++
	}
	return count, nil
}

func (cs chatServices) SetVideo(id string) error {
	return cs.s.runtimeConfig.Set(cs.ctx, "video", id)
}

func (cs chatServices) NotifyBanned(userID int64) {
	frame := encodeFrame(FrameStatus, StatusPayload{Status: StatusBanned})
	for _, sock := range cs.s.reg.SocketsFor(userID) {
		sock.Send(frame)
	}
}

func (cs chatServices) NotifyUnbanned(userID int64) {
	user, err := cs.s.users.FindByID(cs.ctx, userID)
	if err != nil {
		return
	}
	frame := encodeFrame(FrameAuthLevel, AuthLevelPayload{AuthLevel: int(user.AuthLevel)})
	for _, sock := range cs.s.reg.SocketsFor(userID) {
		sock.Send(frame)
	}
}

func (cs chatServices) NotifyAuthLevel(userID int64, level model.AuthLevel) {
	frame := encodeFrame(FrameAuthLevel, AuthLevelPayload{AuthLevel: int(level)})
	for _, sock := range cs.s.reg.SocketsFor(userID) {
		sock.Send(frame)
	}
}

func (cs chatServices) BroadcastDelete(ids []int64) {
	if len(ids) == 0 {
		return
	}
	cs.s.reg.Broadcast(encodeFrame(FrameDelete, DeletePayload{Messages: ids}))
}

func (cs chatServices) EmitAlert(title, subtitle string) {
	cs.s.overlay.Alert(title, subtitle)
}

func (cs chatServices) EmitOverlayCommand(name string) {
	cs.s.overlay.Command(name)
}

func (cs chatServices) AddSimpleResponse(verb, response string) error {
	if err := cs.s.responses.Add(cs.ctx, verb, response); err != nil {
		return err
	}
	cs.s.cmds.Register(verb, model.AuthUser, false, simpleResponseHandler(response))
	return nil
}

func (cs chatServices) EditSimpleResponse(verb, response string) error {
	if err := cs.s.responses.Edit(cs.ctx, verb, response); err != nil {
		return err
	}
	cs.s.cmds.Register(verb, model.AuthUser, false, simpleResponseHandler(response))
	return nil
}

func (cs chatServices) RemoveSimpleResponse(verb string) error {
	if err := cs.s.responses.Remove(cs.ctx, verb); err != nil {
		return err
	}
	cs.s.cmds.Unregister(verb)
	return nil
}

func (cs chatServices) IsBuiltIn(verb string) bool {
	return cs.s.cmds.IsBuiltIn(verb)
}

func (cs chatServices) TimerStart(name string) bool {
	if _, exists := cs.s.timers[name]; exists {
		return false
	}
	cs.s.timers[name] = cs.s.now()
	return true
}

func (cs chatServices) TimerElapsed(name string) (int64, bool) {
	start, ok := cs.s.timers[name]
	if !ok {
		return 0, false
	}
	return cs.s.now() - start, true
}

func (cs chatServices) TimerStop(name string) (int64, bool) {
	elapsed, ok := cs.TimerElapsed(name)
	if ok {
		delete(cs.s.timers, name)
	}
	return elapsed, ok
}

func (cs chatServices) Limits() (slow, duplicateSlow, follow int64) {
	return cs.s.slowSeconds, cs.s.dupSlowSeconds, cs.s.followSeconds
}

func (cs chatServices) SetSlowMode(seconds int64)   { cs.s.slowSeconds = seconds }
func (cs chatServices) SetFollowMode(seconds int64) { cs.s.followSeconds = seconds }

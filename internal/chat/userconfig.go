package chat

import (
	"context"
	"strings"

	"codeberg.org/kcchat/server/internal/apierr"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
)

// displayNameValid enforces the 5-32 char, [A-Za-z0-9_] constraint
// spec.md §3 names for display_name.
func displayNameValid(name string) bool {
	if len(name) < 5 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// handleGetUserConf replies with the caller's current name and color.
func (s *Server) handleGetUserConf(c *Conn, user model.User) {
	c.Send(encodeFrame(FrameGetUserConf, GetUserConfPayload{
		DisplayName:  user.DisplayName,
		DisplayColor: user.DisplayColor,
	}))
}

// handleSetUserConf implements the original's processSetUserConf: color
// updates unconditionally, a name change runs length -> charset ->
// cooldown -> duplicate-key checks in that order. A name that fails one
// of those checks gets its failure status and no `setuserconf` success
// status; otherwise the success status is sent whether or not a name
// change was requested.
func (s *Server) handleSetUserConf(ctx context.Context, c *Conn, user model.User, in InboundFrame) {
	var payload SetUserConfPayload
	if err := unmarshalData(in.Data, &payload); err != nil {
		return
	}

	if payload.DisplayColor != "" {
		if err := s.users.UpdateDisplayColor(ctx, user.ID, payload.DisplayColor); err != nil {
			logger.ErrorErr(err, "update display color failed", "user_id", user.ID)
		}
	}

	newName := strings.TrimSpace(payload.DisplayName)
	if newName != "" && newName != user.DisplayName {
		if !displayNameValid(newName) {
			if len(newName) < 5 || len(newName) > 32 {
				c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusNameLength}))
			} else {
				c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusNameInvalid}))
			}
			return
		}

		now := s.now()
		if now < user.DisplayNameChangeTime+s.renameCooldownSeconds {
			c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusNameTimeout}))
			return
		}

		if err := s.users.UpdateDisplayName(ctx, user.ID, newName, now); err != nil {
			if apierr.IsDuplicateKey(err) {
				c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusNameExists}))
				return
			}
			logger.ErrorErr(err, "update display name failed", "user_id", user.ID)
			c.Send(encodeFrame(FrameServerMsg, ServerMsgPayload{Message: "Internal server error"}))
			return
		}

		if user.DisplayName != "" {
			s.reg.Broadcast(encodeFrame(FramePart, PartPayload{UserID: user.ID}))
		}
		s.reg.Broadcast(encodeFrame(FrameJoin, JoinPayload{UserID: user.ID, DisplayName: newName}))
	}

	c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusSetUserConf}))
}

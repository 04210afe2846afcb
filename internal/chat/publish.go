package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
)

// publishMessage implements spec.md §4.1's publish pipeline for an
// authenticated `message` frame.
func (s *Server) publishMessage(ctx context.Context, c *Conn, user model.User, in InboundFrame) {
	now := s.now()

	if user.Banned(now) {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusBanned}))
		return
	}
	if user.DisplayName == "" {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusRename}))
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(in.Data, &payload); err != nil {
		return
	}

	line := stripZeroWidth(strings.TrimSpace(payload.Message))
	if line == "" {
		return
	}

	var resp commands.Response
	if strings.HasPrefix(line, "!") || strings.HasPrefix(line, "/") {
		tokens := tokenize(line[1:])
		if len(tokens) == 0 {
			return
		}
		req := commands.Request{
			Verb:       strings.ToLower(tokens[0]),
			Args:       tokens[1:],
			AuthorID:   user.ID,
			AuthLevel:  user.AuthLevel,
			HasAuthor:  true,
			AuthorName: user.DisplayName,
		}
		resp = s.cmds.Dispatch(s.servicesFor(ctx), req)
	} else if strings.Contains(strings.ToLower(line), "@"+strings.ToLower(s.botName())) {
		resp = doMention(line, user.DisplayName, user.AuthLevel, s.botName())
	}

	publishing := !resp.Valid() || resp.Public

	if publishing && user.AuthLevel < model.AuthMod {
		if wait, msg := s.enforceTimingModes(user, line, now); wait {
			c.Send(encodeFrame(FrameServerMsg, ServerMsgPayload{Message: msg}))
			return
		}

		if err := s.users.UpdateLastMessage(ctx, user.ID, line, now*1000); err != nil {
			logger.ErrorErr(err, "update last message failed", "user_id", user.ID)
		}
	}

	if publishing {
		s.broadcastChat(ctx, user, line, "")
	}
	if resp.Valid() {
		s.deliverReply(ctx, user, true, resp)
	}

	c.Send(encodeFrame(FrameAccepted, AcceptedPayload{Message: line}))
}

// enforceTimingModes applies slow/duplicate-slow/follow mode for
// sub-MOD callers (spec.md §4.1 step 7). line is the caller's new,
// normalized message, compared against their previously stored one for
// the duplicate-slow-mode check.
func (s *Server) enforceTimingModes(user model.User, line string, now int64) (wait bool, message string) {
	elapsed := now - user.LastMessageTime

	if s.slowSeconds > 0 && elapsed < s.slowSeconds {
		return true, fmt.Sprintf("Slow down! Wait %d more second(s).", s.slowSeconds-elapsed)
	}

	if s.dupSlowSeconds > 0 && line == user.LastMessage && elapsed < s.dupSlowSeconds {
		return true, fmt.Sprintf("Please don't repeat yourself. Wait %d more second(s).", s.dupSlowSeconds-elapsed)
	}

	if s.followSeconds > 0 {
		if sinceCreated := now - user.CreatedAt; sinceCreated < s.followSeconds {
			return true, fmt.Sprintf("New here! Wait %d more second(s).", s.followSeconds-sinceCreated)
		}
	}
	return false, ""
}

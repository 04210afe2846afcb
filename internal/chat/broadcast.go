package chat

import (
	"context"
	"fmt"
	"html"
	"strings"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
)

// containsBannedWord reports whether line contains any configured
// banned substring, case-insensitively (spec.md §4.1.1).
func (s *Server) containsBannedWord(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range s.bannedWords {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// broadcastChat implements spec.md §4.1.1: persist every message
// regardless of outcome, but only fan it out to live sockets when it
// passes the banned-word filter. donateValue is "" for ordinary chat.
func (s *Server) broadcastChat(ctx context.Context, user model.User, line, donateValue string) {
	now := s.now()
	dropped := s.containsBannedWord(line)

	msg := model.Message{
		UserID:      user.ID,
		Time:        now * 1000,
		Message:     line,
		Dropped:     dropped,
		DonateValue: donateValue,
	}
	id, err := s.messages.Insert(ctx, msg)
	if err != nil {
		logger.ErrorErr(err, "insert message failed", "user_id", user.ID)
		return
	}
	if dropped {
		return
	}

	s.reg.Broadcast(encodeFrame(FrameChat, ChatPayload{
		ID:          id,
		Time:        now * 1000,
		Author:      user.DisplayName,
		AuthorID:    user.ID,
		AuthorColor: user.DisplayColor,
		AuthorLevel: int(user.AuthLevel),
		Message:     html.EscapeString(line),
		Auth:        int(user.AuthLevel),
		DonateValue: donateValue,
	}))
}

// broadcastBotMessage is the system/bot-authored variant used for
// command replies and `say` (user_id 0, auth-level MOD).
func (s *Server) broadcastBotMessage(ctx context.Context, line string) {
	now := s.now()
	msg := model.Message{
		UserID:  0,
		Time:    now * 1000,
		Message: line,
	}
	id, err := s.messages.Insert(ctx, msg)
	if err != nil {
		logger.ErrorErr(err, "insert bot message failed")
		return
	}
	s.reg.Broadcast(encodeFrame(FrameChat, ChatPayload{
		ID:          id,
		Time:        now * 1000,
		Author:      s.botName(),
		AuthorID:    0,
		AuthorColor: s.cfg.BotColor,
		AuthorLevel: int(model.AuthMod),
		Message:     html.EscapeString(line),
		Auth:        int(model.AuthMod),
	}))
}

// deliverReply implements spec.md §4.1.2. requester carries the
// author's identity only when hasAuthor is true (console commands pass
// an empty/zero user with hasAuthor=false).
func (s *Server) deliverReply(ctx context.Context, requester model.User, hasAuthor bool, resp commands.Response) {
	if resp.Public {
		line := resp.Message
		if hasAuthor {
			line = fmt.Sprintf("@%s %s", requester.DisplayName, line)
		}
		s.broadcastBotMessage(ctx, line)
		return
	}

	if !hasAuthor {
		fmt.Println(resp.Message)
		return
	}

	frame := encodeFrame(FrameServerMsg, ServerMsgPayload{Message: resp.Message})
	for _, sock := range s.reg.SocketsFor(requester.ID) {
		sock.Send(frame)
	}
}

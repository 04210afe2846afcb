package chat

import (
	"fmt"
	"math/rand"
	"strings"

	"codeberg.org/kcchat/server/internal/chat/commands"
	"codeberg.org/kcchat/server/internal/model"
)

// greetingWords is the exact set spec.md §4.1.3 calls out. Single-word
// entries match as whole, case-insensitive words; multi-word entries
// match as a case-insensitive substring of the whole line.
var greetingWords = []string{
	"hello", "hi", "hey", "salutations", "greetings", "sup", "wassup",
	"whats up", "what's up",
}

// magic8Ball is the fixed 20-line response table (spec.md §8 scenario 5).
var magic8Ball = []string{
	"It is certain.", "It is decidedly so.", "Without a doubt.",
	"Yes definitely.", "You may rely on it.", "As I see it, yes.",
	"Most likely.", "Outlook good.", "Yes.", "Signs point to yes.",
	"Reply hazy, try again.", "Ask again later.", "Better not tell you now.",
	"Cannot predict now.", "Concentrate and ask again.", "Don't count on it.",
	"My reply is no.", "My sources say no.", "Outlook not so good.",
	"Very doubtful.",
}

// mentionIsGreeting reports whether line contains any greeting word,
// using whole-word matching for single-word entries and substring
// matching for multi-word entries.
func mentionIsGreeting(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range greetingWords {
		if strings.Contains(word, " ") {
			if strings.Contains(lower, word) {
				return true
			}
			continue
		}
		for _, token := range strings.Fields(lower) {
			if token == word {
				return true
			}
		}
	}
	return false
}

// mentionIsQuestion reports whether line is addressed to the bot and
// ends in a question mark (spec.md §4.1.3's magic-8-ball trigger).
func mentionIsQuestion(line, botName string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasSuffix(trimmed, "?") {
		return false
	}
	return strings.HasPrefix(strings.ToLower(trimmed), "@"+strings.ToLower(botName))
}

// doMention implements spec.md §4.1.3's mention handler: it is only
// invoked when the publish pipeline has already established the line
// mentions the bot (see publish.go step 6).
func doMention(line, authorName string, authorLevel model.AuthLevel, botName string) commands.Response {
	if mentionIsGreeting(line) {
		if authorLevel >= model.AuthMember {
			return commands.PublicResponse(fmt.Sprintf("Hey @%s!", authorName))
		}
		return commands.PublicResponse("I only say hello to subscribers")
	}

	if mentionIsQuestion(line, botName) {
		pick := magic8Ball[rand.Intn(len(magic8Ball))]
		return commands.PublicResponse(pick)
	}

	return commands.Response{}
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/kcchat/server/internal/model"
)

func TestDoMentionGreetsMembersAndAbove(t *testing.T) {
	r := doMention("hey @kcbot", "alice", model.AuthMember, "kcbot")
	assert.True(t, r.Valid())
	assert.True(t, r.Public)
	assert.Equal(t, "Hey @alice!", r.Message)
}

func TestDoMentionRefusesNonMembers(t *testing.T) {
	r := doMention("hi there", "bob", model.AuthUser, "kcbot")
	assert.Equal(t, "I only say hello to subscribers", r.Message)
}

func TestDoMentionMagic8BallOnQuestion(t *testing.T) {
	r := doMention("@kcbot is it working?", "carol", model.AuthUser, "kcbot")
	assert.True(t, r.Valid())
	found := false
	for _, line := range magic8Ball {
		if line == r.Message {
			found = true
			break
		}
	}
	assert.True(t, found, "response %q should be one of the fixed 20 lines", r.Message)
}

func TestDoMentionNoTriggerReturnsInvalid(t *testing.T) {
	r := doMention("just chatting about nothing", "dave", model.AuthUser, "kcbot")
	assert.False(t, r.Valid())
}

func TestMentionIsGreetingMultiWordSubstring(t *testing.T) {
	assert.True(t, mentionIsGreeting("@kcbot whats up with the stream"))
}

func TestMentionIsGreetingWholeWordOnly(t *testing.T) {
	assert.False(t, mentionIsGreeting("shell script"), "should not match 'hell' or partial tokens")
}

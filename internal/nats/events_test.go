package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trivium-ai/bot-platform/internal/model"
)

func TestEventSubject(t *testing.T) {
	subject := EventSubject("user-1", "thread_abc_1718000000", model.EventTypeThreadCreated)
	assert.Equal(t, "bot.user-1.thread_abc_1718000000.created", subject)
}

func TestEventSubjectSanitizesTokens(t *testing.T) {
	// Dots and wildcards in identifiers must not alter subject structure.
	subject := EventSubject("user.name", "thread.>*", model.EventTypePreference)
	assert.Equal(t, "bot.user_name.thread___.preference", subject)
}

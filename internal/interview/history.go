package interview

import (
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
)

const interviewerName = "AI Interviewer"

// BuildHistory converts the session's turns into model context, oldest first,
// followed by the pending user message.
func BuildHistory(sess *Session, userMessage string) []anthropic.Message {
	history := make([]anthropic.Message, 0, len(sess.Messages)+1)
	for _, m := range sess.Messages {
		role := "user"
		if m.Type == MessageAI {
			role = "assistant"
		}
		history = append(history, anthropic.Message{Role: role, Content: m.Content})
	}
	return append(history, anthropic.Message{Role: "user", Content: userMessage})
}

// Transcript renders the session as "[timestamp] Speaker: content" lines.
func Transcript(sess *Session) string {
	var b strings.Builder
	for i, m := range sess.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		speaker := sess.ParticipantName
		if m.Type == MessageAI {
			speaker = interviewerName
		}
		b.WriteString("[" + m.Timestamp.Format(time.RFC3339) + "] " + speaker + ": " + m.Content)
	}
	return b.String()
}

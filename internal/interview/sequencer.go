package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
)

var (
	// ErrSessionComplete is returned when a message arrives for a finished interview.
	ErrSessionComplete = errors.New("interview is already complete")
	ErrEmptyMessage    = errors.New("message is required")
	ErrEmptyName       = errors.New("participant_name is required")
)

const openingTopic = "category_relationship"

var interviewOptions = anthropic.Options{MaxTokens: 1000, Temperature: 0.7}

// Generator produces the next interviewer turn.
type Generator interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, opts anthropic.Options) (string, error)
}

// Sequencer drives a session through NOT_STARTED -> IN_PROGRESS -> COMPLETE.
// It holds no session state; every call takes a snapshot and returns a new one.
type Sequencer struct {
	llm    Generator
	logger *slog.Logger
	now    func() time.Time
}

func NewSequencer(llm Generator, logger *slog.Logger) *Sequencer {
	return &Sequencer{llm: llm, logger: logger, now: time.Now}
}

// SessionID builds interview_<timestamp>_<name>_<questionnaire|category|default>.
func SessionID(name string, q *Questionnaire, at time.Time) string {
	suffix := "default"
	if q != nil {
		switch {
		case q.ID != "":
			suffix = q.ID
		case q.Category != "":
			suffix = q.Category
		}
	}
	return fmt.Sprintf("interview_%s_%s_%s", at.Format("20060102_150405"), strings.Join(strings.Fields(name), "_"), suffix)
}

// Start opens a session with a single greeting from the interviewer. The
// greeting is conversational; scripted questions begin with the first Advance.
func (s *Sequencer) Start(name string, q *Questionnaire) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	now := s.now()
	sess := &Session{
		SessionID:       SessionID(name, q, now),
		ParticipantName: name,
		StartTime:       now,
		CurrentTopic:    openingTopic,
		Messages: []Message{{
			ID:        "1",
			Type:      MessageAI,
			Content:   openingMessage(name, q),
			Timestamp: now,
		}},
	}
	if q != nil {
		sess.QuestionnaireID = q.ID
	}

	s.logger.Info("interview started",
		"session_id", sess.SessionID,
		"participant", name,
		"questionnaire_id", sess.QuestionnaireID,
		"target_questions", q.TargetQuestions(),
	)
	return sess, nil
}

// Placeholder stands in for a session id the store has never seen. It has no
// messages and zero exchanges, so the next Advance asks the first question.
func (s *Sequencer) Placeholder(sessionID, name string, q *Questionnaire) *Session {
	sess := &Session{
		SessionID:       sessionID,
		ParticipantName: strings.TrimSpace(name),
		StartTime:       s.now(),
		CurrentTopic:    openingTopic,
	}
	if q != nil {
		sess.QuestionnaireID = q.ID
	}
	s.logger.Warn("session not found, using placeholder", "session_id", sessionID, "participant", sess.ParticipantName)
	return sess
}

// FromMessages rebuilds a session from a client-held message list. Exchanges
// are counted as user turns.
func (s *Sequencer) FromMessages(sessionID, name string, msgs []Message) *Session {
	now := s.now()
	sess := &Session{
		SessionID:       sessionID,
		ParticipantName: strings.TrimSpace(name),
		StartTime:       now,
		CurrentTopic:    openingTopic,
		Messages:        make([]Message, 0, len(msgs)),
	}
	for i, m := range msgs {
		if m.ID == "" {
			m.ID = strconv.Itoa(i + 1)
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		if m.Type == MessageUser {
			sess.ExchangeCount++
		}
		sess.Messages = append(sess.Messages, m)
	}
	if len(sess.Messages) > 0 {
		sess.StartTime = sess.Messages[0].Timestamp
	}
	return sess
}

// Advance records the user's message and the interviewer's reply. The input
// session is left untouched; the returned session has exchange_count+1.
func (s *Sequencer) Advance(ctx context.Context, sess *Session, q *Questionnaire, userMessage string) (string, *Session, error) {
	if sess.IsComplete {
		return "", nil, ErrSessionComplete
	}
	if strings.TrimSpace(userMessage) == "" {
		return "", nil, ErrEmptyMessage
	}

	var (
		response string
		scripted bool
	)
	if q != nil && sess.ExchangeCount < len(q.Questions) {
		response = scriptedTurn(q.Questions[sess.ExchangeCount])
		scripted = true
	} else {
		raw, err := s.llm.Complete(ctx, SystemPrompt(q), BuildHistory(sess, userMessage), interviewOptions)
		if err != nil {
			return "", nil, fmt.Errorf("generate follow-up: %w", err)
		}
		response = strings.TrimSpace(raw)
	}

	next := sess.Clone()
	next.ExchangeCount++
	if next.ExchangeCount >= q.TargetQuestions() {
		next.IsComplete = true
		if !strings.Contains(strings.ToLower(response), closingPhrase) {
			response += "\n\n" + closingMessage(q.Topic())
		}
	}

	now := s.now()
	next.Messages = append(next.Messages,
		Message{ID: strconv.Itoa(len(next.Messages) + 1), Type: MessageUser, Content: userMessage, Timestamp: now},
	)
	next.Messages = append(next.Messages,
		Message{ID: strconv.Itoa(len(next.Messages) + 1), Type: MessageAI, Content: response, Timestamp: now},
	)
	if next.IsComplete {
		next.CompletedAt = now
	}

	s.logger.Debug("interview advanced",
		"session_id", next.SessionID,
		"exchange_count", next.ExchangeCount,
		"scripted", scripted,
		"complete", next.IsComplete,
	)
	return response, next, nil
}

// Complete marks the session finished. Completing twice is a no-op.
func (s *Sequencer) Complete(sess *Session) *Session {
	next := sess.Clone()
	if !next.IsComplete {
		next.IsComplete = true
		next.CompletedAt = s.now()
	}
	return next
}

func scriptedTurn(q Question) string {
	text := q.Prompt()
	if help := strings.TrimSpace(q.HelpText); help != "" {
		text += "\n\n" + help
	}
	return text
}

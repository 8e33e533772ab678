package interview

import (
	"fmt"
	"strings"
	"time"
)

type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

// Message is one conversational turn. Messages are never edited after they
// are appended to a session.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Session is a single interview run. ExchangeCount grows by one per
// user+AI pair and IsComplete only ever moves from false to true.
type Session struct {
	SessionID       string    `json:"session_id"`
	ParticipantName string    `json:"participant_name"`
	Messages        []Message `json:"messages"`
	StartTime       time.Time `json:"start_time"`
	CurrentTopic    string    `json:"current_topic"`
	ExchangeCount   int       `json:"exchange_count"`
	IsComplete      bool      `json:"is_complete"`
	QuestionnaireID string    `json:"questionnaire_id,omitempty"`
	ProfileID       string    `json:"profile_id,omitempty"`
	CompletedAt     time.Time `json:"completed_at,omitzero"`
}

// Clone returns a deep copy so callers can compute the next state without
// touching the loaded snapshot.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// LastAIMessage returns the content of the most recent AI turn.
func (s *Session) LastAIMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Type == MessageAI {
			return s.Messages[i].Content
		}
	}
	return ""
}

type Question struct {
	ID           string   `json:"id" yaml:"id"`
	Text         string   `json:"text,omitempty" yaml:"text,omitempty"`
	QuestionText string   `json:"question_text,omitempty" yaml:"question_text,omitempty"`
	HelpText     string   `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Options      []string `json:"options,omitempty" yaml:"options,omitempty"`
	Required     bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Order        int      `json:"question_order,omitempty" yaml:"question_order,omitempty"`
}

// Prompt is the verbatim text asked for this question.
func (q Question) Prompt() string {
	switch {
	case strings.TrimSpace(q.Text) != "":
		return q.Text
	case strings.TrimSpace(q.QuestionText) != "":
		return q.QuestionText
	default:
		return genericQuestionPrompt
	}
}

// Section and Field return the profile tag pair, if the question carries one.
func (q Question) Section() string {
	if len(q.Tags) >= 2 {
		return q.Tags[0]
	}
	return ""
}

func (q Question) Field() string {
	if len(q.Tags) >= 2 {
		return q.Tags[1]
	}
	return ""
}

// Questionnaire is the optional scripted context for an interview. It is
// loaded once per request and never modified by the sequencer.
type Questionnaire struct {
	ID                string     `json:"questionnaire_id" yaml:"questionnaire_id"`
	Title             string     `json:"title" yaml:"title"`
	Description       string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category          string     `json:"category" yaml:"category"`
	Questions         []Question `json:"questions" yaml:"questions"`
	EstimatedDuration int        `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
	IsPublic          bool       `json:"is_public" yaml:"is_public"`
	CreatedBy         string     `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at,omitzero" yaml:"-"`
}

const (
	DefaultTargetQuestions = 8
	minTargetQuestions     = 3
	maxTargetQuestions     = 8
)

// TargetQuestions is the number of exchanges after which the interview is
// complete: len(questions)+2 clamped to [3, 8], or 8 without a questionnaire.
func (q *Questionnaire) TargetQuestions() int {
	if q == nil {
		return DefaultTargetQuestions
	}
	n := len(q.Questions) + 2
	if n < minTargetQuestions {
		return minTargetQuestions
	}
	if n > maxTargetQuestions {
		return maxTargetQuestions
	}
	return n
}

// Topic is the subject named in the closing message.
func (q *Questionnaire) Topic() string {
	if q == nil || strings.TrimSpace(q.Category) == "" {
		return "this topic"
	}
	return q.Category
}

// Validate checks the fields a stored questionnaire must have.
func (q *Questionnaire) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("questionnaire_id is required")
	}
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(q.Category) == "" {
		return fmt.Errorf("category is required")
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("questionnaire must have at least one question")
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.ID) == "" {
			return fmt.Errorf("question %d missing required field: id", i+1)
		}
	}
	return nil
}

// Operation is the interview action requested by a client. It is resolved
// once at the boundary and passed down as a value.
type Operation string

const (
	OpStart    Operation = "start"
	OpContinue Operation = "continue"
	OpComplete Operation = "complete"
)

// ParseOperation maps a client-supplied action to an Operation. An empty
// action means start.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpStart:
		return OpStart, nil
	case OpContinue, "message":
		return OpContinue, nil
	case OpComplete:
		return OpComplete, nil
	default:
		return "", fmt.Errorf("unknown interview action %q", s)
	}
}

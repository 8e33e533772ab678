package processor

import (
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

// ErrInvalidInput marks a request that is missing or has malformed fields.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InterviewRequest carries every interview operation. Which fields are
// required depends on the operation.
type InterviewRequest struct {
	Action          string         `json:"action,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	ParticipantName string         `json:"participant_name,omitempty"`
	Message         string         `json:"message,omitempty"`
	QuestionnaireID string         `json:"questionnaire_id,omitempty"`
	InterviewData   *InterviewData `json:"interview_data,omitempty"`
}

// InterviewData is a client-held transcript sent with complete when the
// session was never stored.
type InterviewData struct {
	Messages []interview.Message `json:"messages"`
}

type InterviewResponse struct {
	SessionID       string                `json:"session_id"`
	ParticipantName string                `json:"participant_name"`
	AIResponse      string                `json:"ai_response,omitempty"`
	Messages        []interview.Message   `json:"messages,omitempty"`
	ExchangeCount   int                   `json:"exchange_count"`
	TargetQuestions int                   `json:"target_questions"`
	IsComplete      bool                  `json:"is_complete"`
	CurrentTopic    string                `json:"current_topic,omitempty"`
	ProfileCreated  bool                  `json:"profile_created"`
	Profile         *store.ProfileVersion `json:"profile,omitempty"`
}

// ExtractRequest builds a profile from a transcript or a message list.
type ExtractRequest struct {
	ParticipantName string         `json:"participant_name"`
	Transcript      string         `json:"transcript,omitempty"`
	InterviewData   *InterviewData `json:"interview_data,omitempty"`
}

// CompareRequest checks one predicted answer against a human answer.
type CompareRequest struct {
	ProfileID   string `json:"profile_id"`
	PersonName  string `json:"person_name,omitempty"`
	SurveyName  string `json:"survey_name,omitempty"`
	QuestionID  string `json:"question_id"`
	HumanAnswer string `json:"human_answer"`
}

// ValidationRequest runs a whole survey against a profile.
type ValidationRequest struct {
	ProfileID   string            `json:"profile_id"`
	PersonName  string            `json:"person_name,omitempty"`
	SurveyName  string            `json:"survey_name,omitempty"`
	RealAnswers map[string]string `json:"real_answers"`
}

type Status struct {
	Status         string `json:"status"`
	ActiveProfiles int    `json:"active_profiles"`
	Storage        string `json:"storage"`
	Model          string `json:"model"`
	Events         bool   `json:"events"`
}

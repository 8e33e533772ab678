package hermes

import "time"

// Subjects for Pai domain events.
const (
	SubjectInterviewStarted    = "pai.interview.started"
	SubjectInterviewCompleted  = "pai.interview.completed"
	SubjectProfileCreated      = "pai.profile.created"
	SubjectValidationCompleted = "pai.validation.completed"

	// SubjectAll matches every Pai event.
	SubjectAll = "pai.>"
)

type InterviewStarted struct {
	SessionID       string    `json:"session_id"`
	ParticipantName string    `json:"participant_name"`
	QuestionnaireID string    `json:"questionnaire_id,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

type InterviewCompleted struct {
	SessionID       string    `json:"session_id"`
	ParticipantName string    `json:"participant_name"`
	ExchangeCount   int       `json:"exchange_count"`
	MessageCount    int       `json:"message_count"`
	CompletedAt     time.Time `json:"completed_at"`
}

type ProfileCreated struct {
	ProfileID       string `json:"profile_id"`
	PersonName      string `json:"person_name"`
	VersionNumber   int    `json:"version_number"`
	SessionID       string `json:"session_id,omitempty"`
	FallbackProfile bool   `json:"fallback_profile"`
}

type ValidationCompleted struct {
	RunID          string  `json:"run_id"`
	ProfileID      string  `json:"profile_id"`
	SurveyName     string  `json:"survey_name"`
	TotalQuestions int     `json:"total_questions"`
	AccuracyRate   float64 `json:"accuracy_rate"`
	MeetsTarget    bool    `json:"meets_target"`
}

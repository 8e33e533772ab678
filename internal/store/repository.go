package store

import (
	"context"
	"errors"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProfileVersion is one extracted profile for a person. Versions are
// numbered from 1 per person; only IsActive and Completeness change after
// creation.
type ProfileVersion struct {
	ProfileID     string             `json:"profile_id"`
	PersonName    string             `json:"person_name"`
	VersionNumber int                `json:"version_number"`
	Profile       *extractor.Profile `json:"profile_data"`
	IsActive      bool               `json:"is_active"`
	Completeness  Completeness       `json:"completeness_metadata"`
	SessionID     string             `json:"session_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at,omitzero"`
}

// Completeness records how much evidence a profile version was built from.
type Completeness struct {
	QuestionnaireID   string   `json:"questionnaire_id,omitempty"`
	ExchangeCount     int      `json:"exchange_count"`
	MessageCount      int      `json:"message_count"`
	FallbackProfile   bool     `json:"fallback_profile"`
	QualityNotes      int      `json:"data_quality_notes"`
	PopulatedSections []string `json:"populated_sections"`
}

// ValidationRun is a persisted validation result.
type ValidationRun struct {
	ID                 string             `json:"id"`
	ProfileID          string             `json:"profile_id"`
	SurveyName         string             `json:"survey_name"`
	ModelVersion       string             `json:"model_version"`
	DigitalTwinVersion string             `json:"digital_twin_version"`
	Result             *validation.Result `json:"results"`
	CreatedAt          time.Time          `json:"created_at,omitzero"`
}

// Header returns the report header for this run.
func (r *ValidationRun) Header() validation.ReportHeader {
	return validation.ReportHeader{
		RunID:        r.ID,
		ProfileID:    r.ProfileID,
		SurveyName:   r.SurveyName,
		ModelVersion: r.ModelVersion,
		CreatedAt:    r.CreatedAt,
	}
}

// Repository is the persistence boundary. Sessions are read and written as
// whole snapshots; there is no locking across requests for the same session.
type Repository interface {
	EnsurePerson(ctx context.Context, name string) error

	GetSession(ctx context.Context, sessionID string) (*interview.Session, error)
	PutSession(ctx context.Context, sess *interview.Session) error

	CreateProfileVersion(ctx context.Context, v *ProfileVersion) error
	GetProfileVersion(ctx context.Context, profileID string) (*ProfileVersion, error)
	LatestProfileVersion(ctx context.Context, person string) (*ProfileVersion, error)
	// ListProfileVersions returns the person's versions, newest first.
	ListProfileVersions(ctx context.Context, person string) ([]ProfileVersion, error)
	ListActiveProfiles(ctx context.Context) ([]ProfileVersion, error)
	DeactivateOtherVersions(ctx context.Context, person, keepProfileID string) error

	CreateQuestionnaire(ctx context.Context, q *interview.Questionnaire) error
	GetQuestionnaire(ctx context.Context, id string) (*interview.Questionnaire, error)
	// ListQuestionnaires filters by category, or returns public ones when
	// category is empty.
	ListQuestionnaires(ctx context.Context, category string) ([]interview.Questionnaire, error)

	CreateSurvey(ctx context.Context, s *predictor.Survey) error
	GetSurvey(ctx context.Context, name string) (*predictor.Survey, error)
	ListSurveys(ctx context.Context) ([]predictor.Survey, error)
	DeleteSurvey(ctx context.Context, name string) error

	SaveValidationRun(ctx context.Context, run *ValidationRun) error
	GetValidationRun(ctx context.Context, id string) (*ValidationRun, error)
	ListValidationRuns(ctx context.Context, profileID string) ([]ValidationRun, error)

	Close()
}

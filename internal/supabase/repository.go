package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

const (
	tablePeople         = "people"
	tableSessions       = "interview_sessions"
	tableProfiles       = "profile_versions"
	tableQuestionnaires = "custom_questionnaires"
	tableSurveys        = "survey_templates"
	tableRuns           = "validation_test_sessions"
)

var _ store.Repository = (*Client)(nil)

// getOne fetches the single row matching query, or store.ErrNotFound.
func getOne[T any](ctx context.Context, c *Client, table string, query url.Values) (*T, error) {
	var rows []T
	if err := c.do(ctx, http.MethodGet, table, query, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

// insertOne posts row and decodes the stored representation back into it.
func insertOne[T any](ctx context.Context, c *Client, table string, query url.Values, prefer string, row *T) error {
	var rows []T
	if err := c.do(ctx, http.MethodPost, table, query, row, prefer, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*row = rows[0]
	}
	return nil
}

func (c *Client) EnsurePerson(ctx context.Context, name string) error {
	q := url.Values{"on_conflict": {"name"}}
	if err := c.do(ctx, http.MethodPost, tablePeople, q, map[string]string{"name": name}, preferIgnore, nil); err != nil {
		return fmt.Errorf("ensure person: %w", err)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*interview.Session, error) {
	sess, err := getOne[interview.Session](ctx, c, tableSessions, url.Values{"session_id": {eq(sessionID)}})
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (c *Client) PutSession(ctx context.Context, sess *interview.Session) error {
	q := url.Values{"on_conflict": {"session_id"}}
	if err := c.do(ctx, http.MethodPost, tableSessions, q, sess, preferUpsert, nil); err != nil {
		return fmt.Errorf("put session %s: %w", sess.SessionID, err)
	}
	return nil
}

func (c *Client) CreateProfileVersion(ctx context.Context, v *store.ProfileVersion) error {
	if err := c.EnsurePerson(ctx, v.PersonName); err != nil {
		return err
	}
	if err := insertOne(ctx, c, tableProfiles, nil, preferRepresentation, v); err != nil {
		return fmt.Errorf("insert profile version: %w", err)
	}
	return nil
}

func (c *Client) GetProfileVersion(ctx context.Context, profileID string) (*store.ProfileVersion, error) {
	v, err := getOne[store.ProfileVersion](ctx, c, tableProfiles, url.Values{"profile_id": {eq(profileID)}})
	if err != nil {
		return nil, fmt.Errorf("get profile version %s: %w", profileID, err)
	}
	return v, nil
}

func (c *Client) LatestProfileVersion(ctx context.Context, person string) (*store.ProfileVersion, error) {
	v, err := getOne[store.ProfileVersion](ctx, c, tableProfiles, url.Values{
		"person_name": {ilike(person)},
		"order":       {"version_number.desc"},
		"limit":       {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("latest profile version for %s: %w", person, err)
	}
	return v, nil
}

func (c *Client) ListProfileVersions(ctx context.Context, person string) ([]store.ProfileVersion, error) {
	var out []store.ProfileVersion
	q := url.Values{"person_name": {ilike(person)}, "order": {"version_number.desc"}}
	if err := c.do(ctx, http.MethodGet, tableProfiles, q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list profile versions: %w", err)
	}
	return out, nil
}

func (c *Client) ListActiveProfiles(ctx context.Context) ([]store.ProfileVersion, error) {
	var out []store.ProfileVersion
	q := url.Values{"is_active": {"eq.true"}, "order": {"created_at.desc"}}
	if err := c.do(ctx, http.MethodGet, tableProfiles, q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list active profiles: %w", err)
	}
	return out, nil
}

func (c *Client) DeactivateOtherVersions(ctx context.Context, person, keepProfileID string) error {
	q := url.Values{
		"person_name": {ilike(person)},
		"profile_id":  {"neq." + keepProfileID},
		"is_active":   {"eq.true"},
	}
	if err := c.do(ctx, http.MethodPatch, tableProfiles, q, map[string]bool{"is_active": false}, "return=minimal", nil); err != nil {
		return fmt.Errorf("deactivate profile versions: %w", err)
	}
	return nil
}

func (c *Client) CreateQuestionnaire(ctx context.Context, qn *interview.Questionnaire) error {
	if err := insertOne(ctx, c, tableQuestionnaires, nil, preferRepresentation, qn); err != nil {
		return fmt.Errorf("insert questionnaire: %w", err)
	}
	return nil
}

func (c *Client) GetQuestionnaire(ctx context.Context, id string) (*interview.Questionnaire, error) {
	qn, err := getOne[interview.Questionnaire](ctx, c, tableQuestionnaires, url.Values{"questionnaire_id": {eq(id)}})
	if err != nil {
		return nil, fmt.Errorf("get questionnaire %s: %w", id, err)
	}
	return qn, nil
}

func (c *Client) ListQuestionnaires(ctx context.Context, category string) ([]interview.Questionnaire, error) {
	q := url.Values{"order": {"created_at.desc"}}
	if category == "" {
		q.Set("is_public", "eq.true")
	} else {
		q.Set("category", eq(category))
	}
	var out []interview.Questionnaire
	if err := c.do(ctx, http.MethodGet, tableQuestionnaires, q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	return out, nil
}

func (c *Client) CreateSurvey(ctx context.Context, s *predictor.Survey) error {
	if err := insertOne(ctx, c, tableSurveys, nil, preferRepresentation, s); err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

func (c *Client) GetSurvey(ctx context.Context, name string) (*predictor.Survey, error) {
	s, err := getOne[predictor.Survey](ctx, c, tableSurveys, url.Values{"survey_name": {eq(name)}})
	if err != nil {
		return nil, fmt.Errorf("get survey %s: %w", name, err)
	}
	return s, nil
}

func (c *Client) ListSurveys(ctx context.Context) ([]predictor.Survey, error) {
	var out []predictor.Survey
	if err := c.do(ctx, http.MethodGet, tableSurveys, url.Values{"order": {"survey_name.asc"}}, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteSurvey(ctx context.Context, name string) error {
	var deleted []predictor.Survey
	if err := c.do(ctx, http.MethodDelete, tableSurveys, url.Values{"survey_name": {eq(name)}}, nil, preferRepresentation, &deleted); err != nil {
		return fmt.Errorf("delete survey %s: %w", name, err)
	}
	if len(deleted) == 0 {
		return fmt.Errorf("delete survey %s: %w", name, store.ErrNotFound)
	}
	return nil
}

func (c *Client) SaveValidationRun(ctx context.Context, run *store.ValidationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := insertOne(ctx, c, tableRuns, nil, preferRepresentation, run); err != nil {
		return fmt.Errorf("insert validation run: %w", err)
	}
	return nil
}

func (c *Client) GetValidationRun(ctx context.Context, id string) (*store.ValidationRun, error) {
	run, err := getOne[store.ValidationRun](ctx, c, tableRuns, url.Values{"id": {eq(id)}})
	if err != nil {
		return nil, fmt.Errorf("get validation run %s: %w", id, err)
	}
	return run, nil
}

func (c *Client) ListValidationRuns(ctx context.Context, profileID string) ([]store.ValidationRun, error) {
	var out []store.ValidationRun
	q := url.Values{"profile_id": {eq(profileID)}, "order": {"created_at.desc"}}
	if err := c.do(ctx, http.MethodGet, tableRuns, q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list validation runs: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SaveValidationRun stores a run, assigning an id if it has none.
func (s *Store) SaveValidationRun(ctx context.Context, run *ValidationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("save validation run: invalid id %q: %w", run.ID, err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO validation_test_sessions (id, profile_id, survey_name, model_version, digital_twin_version, results)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		id, run.ProfileID, run.SurveyName, run.ModelVersion, run.DigitalTwinVersion, run.Result,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert validation run: %w", err)
	}
	return nil
}

func (s *Store) GetValidationRun(ctx context.Context, id string) (*ValidationRun, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("get validation run %s: %w", id, ErrNotFound)
	}

	var (
		run   ValidationRun
		rowID uuid.UUID
	)
	err = s.pool.QueryRow(ctx, `
		SELECT id, profile_id, survey_name, model_version, digital_twin_version, results, created_at
		FROM validation_test_sessions WHERE id = $1`, runID,
	).Scan(&rowID, &run.ProfileID, &run.SurveyName, &run.ModelVersion, &run.DigitalTwinVersion, &run.Result, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get validation run %s: %w", id, notFound(err))
	}
	run.ID = rowID.String()
	return &run, nil
}

func (s *Store) ListValidationRuns(ctx context.Context, profileID string) ([]ValidationRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, profile_id, survey_name, model_version, digital_twin_version, results, created_at
		FROM validation_test_sessions
		WHERE profile_id = $1
		ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query validation runs: %w", err)
	}
	defer rows.Close()

	var out []ValidationRun
	for rows.Next() {
		var (
			run   ValidationRun
			rowID uuid.UUID
		)
		if err := rows.Scan(&rowID, &run.ProfileID, &run.SurveyName, &run.ModelVersion, &run.DigitalTwinVersion, &run.Result, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation run: %w", err)
		}
		run.ID = rowID.String()
		out = append(out, run)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/pai/internal/predictor"
)

func (s *Store) CreateSurvey(ctx context.Context, sv *predictor.Survey) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO survey_templates (survey_name, title, description, target_accuracy, questions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		sv.Name, sv.Title, sv.Description, sv.TargetAccuracy, sv.Questions,
	).Scan(&sv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

func (s *Store) GetSurvey(ctx context.Context, name string) (*predictor.Survey, error) {
	var sv predictor.Survey
	err := s.pool.QueryRow(ctx, `
		SELECT survey_name, title, description, target_accuracy, questions, created_at
		FROM survey_templates WHERE survey_name = $1`, name,
	).Scan(&sv.Name, &sv.Title, &sv.Description, &sv.TargetAccuracy, &sv.Questions, &sv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get survey %s: %w", name, notFound(err))
	}
	return &sv, nil
}

func (s *Store) ListSurveys(ctx context.Context) ([]predictor.Survey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT survey_name, title, description, target_accuracy, questions, created_at
		FROM survey_templates ORDER BY survey_name`)
	if err != nil {
		return nil, fmt.Errorf("query surveys: %w", err)
	}
	defer rows.Close()

	var out []predictor.Survey
	for rows.Next() {
		var sv predictor.Survey
		if err := rows.Scan(&sv.Name, &sv.Title, &sv.Description, &sv.TargetAccuracy, &sv.Questions, &sv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSurvey(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM survey_templates WHERE survey_name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete survey %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete survey %s: %w", name, ErrNotFound)
	}
	return nil
}

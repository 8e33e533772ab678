package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/pai/internal/interview"
)

const questionnaireColumns = `questionnaire_id, title, description, category, questions,
	estimated_duration, is_public, created_by, created_at`

func (s *Store) CreateQuestionnaire(ctx context.Context, q *interview.Questionnaire) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO custom_questionnaires (questionnaire_id, title, description, category, questions,
		                                   estimated_duration, is_public, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		q.ID, q.Title, q.Description, q.Category, q.Questions, q.EstimatedDuration, q.IsPublic, q.CreatedBy,
	).Scan(&q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert questionnaire: %w", err)
	}
	return nil
}

func (s *Store) GetQuestionnaire(ctx context.Context, id string) (*interview.Questionnaire, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionnaireColumns+` FROM custom_questionnaires WHERE questionnaire_id = $1`, id)
	q, err := scanQuestionnaire(row)
	if err != nil {
		return nil, fmt.Errorf("get questionnaire %s: %w", id, notFound(err))
	}
	return q, nil
}

func (s *Store) ListQuestionnaires(ctx context.Context, category string) ([]interview.Questionnaire, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if category == "" {
		rows, err = s.pool.Query(ctx, `SELECT `+questionnaireColumns+` FROM custom_questionnaires
			WHERE is_public ORDER BY created_at DESC`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT `+questionnaireColumns+` FROM custom_questionnaires
			WHERE category = $1 ORDER BY created_at DESC`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("query questionnaires: %w", err)
	}
	defer rows.Close()

	var out []interview.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func scanQuestionnaire(row pgx.Row) (*interview.Questionnaire, error) {
	var q interview.Questionnaire
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Category, &q.Questions,
		&q.EstimatedDuration, &q.IsPublic, &q.CreatedBy, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

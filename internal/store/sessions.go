package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/interview"
)

// GetSession loads a whole session snapshot.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*interview.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, participant_name, messages, start_time, current_topic,
		       exchange_count, is_complete, questionnaire_id, profile_id, completed_at
		FROM interview_sessions WHERE session_id = $1`, sessionID)

	var (
		sess        interview.Session
		completedAt *time.Time
	)
	err := row.Scan(&sess.SessionID, &sess.ParticipantName, &sess.Messages, &sess.StartTime, &sess.CurrentTopic,
		&sess.ExchangeCount, &sess.IsComplete, &sess.QuestionnaireID, &sess.ProfileID, &completedAt)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, notFound(err))
	}
	if completedAt != nil {
		sess.CompletedAt = *completedAt
	}
	return &sess, nil
}

// PutSession overwrites the stored snapshot. Concurrent writers race; the
// last write wins.
func (s *Store) PutSession(ctx context.Context, sess *interview.Session) error {
	var completedAt *time.Time
	if !sess.CompletedAt.IsZero() {
		completedAt = &sess.CompletedAt
	}
	messages := sess.Messages
	if messages == nil {
		messages = []interview.Message{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO interview_sessions (session_id, participant_name, messages, start_time, current_topic,
		                                exchange_count, is_complete, questionnaire_id, profile_id, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (session_id) DO UPDATE SET
			participant_name = EXCLUDED.participant_name,
			messages = EXCLUDED.messages,
			current_topic = EXCLUDED.current_topic,
			exchange_count = EXCLUDED.exchange_count,
			is_complete = EXCLUDED.is_complete,
			questionnaire_id = EXCLUDED.questionnaire_id,
			profile_id = EXCLUDED.profile_id,
			completed_at = EXCLUDED.completed_at,
			updated_at = now()`,
		sess.SessionID, sess.ParticipantName, messages, sess.StartTime, sess.CurrentTopic,
		sess.ExchangeCount, sess.IsComplete, sess.QuestionnaireID, sess.ProfileID, completedAt,
	)
	if err != nil {
		return fmt.Errorf("put session %s: %w", sess.SessionID, err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `profile_id, person_name, version_number, profile_data, is_active,
	completeness_metadata, session_id, created_at`

// CreateProfileVersion inserts a new version, creating the person row first.
func (s *Store) CreateProfileVersion(ctx context.Context, v *ProfileVersion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO people (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, v.PersonName); err != nil {
		return fmt.Errorf("ensure person: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO profile_versions (profile_id, person_name, version_number, profile_data, is_active,
		                              completeness_metadata, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		v.ProfileID, v.PersonName, v.VersionNumber, v.Profile, v.IsActive, v.Completeness, v.SessionID,
	).Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert profile version: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetProfileVersion(ctx context.Context, profileID string) (*ProfileVersion, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profile_versions WHERE profile_id = $1`, profileID)
	v, err := scanProfileVersion(row)
	if err != nil {
		return nil, fmt.Errorf("get profile version %s: %w", profileID, notFound(err))
	}
	return v, nil
}

func (s *Store) LatestProfileVersion(ctx context.Context, person string) (*ProfileVersion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profile_versions
		WHERE lower(person_name) = lower($1)
		ORDER BY version_number DESC LIMIT 1`, person)
	v, err := scanProfileVersion(row)
	if err != nil {
		return nil, fmt.Errorf("latest profile version for %s: %w", person, notFound(err))
	}
	return v, nil
}

func (s *Store) ListProfileVersions(ctx context.Context, person string) ([]ProfileVersion, error) {
	return s.queryProfileVersions(ctx, `
		SELECT `+profileColumns+` FROM profile_versions
		WHERE lower(person_name) = lower($1)
		ORDER BY version_number DESC`, person)
}

func (s *Store) ListActiveProfiles(ctx context.Context) ([]ProfileVersion, error) {
	return s.queryProfileVersions(ctx, `
		SELECT `+profileColumns+` FROM profile_versions
		WHERE is_active
		ORDER BY created_at DESC`)
}

func (s *Store) DeactivateOtherVersions(ctx context.Context, person, keepProfileID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profile_versions SET is_active = false
		WHERE lower(person_name) = lower($1) AND profile_id <> $2 AND is_active`,
		person, keepProfileID,
	)
	if err != nil {
		return fmt.Errorf("deactivate profile versions: %w", err)
	}
	return nil
}

func (s *Store) queryProfileVersions(ctx context.Context, sql string, args ...any) ([]ProfileVersion, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query profile versions: %w", err)
	}
	defer rows.Close()

	var out []ProfileVersion
	for rows.Next() {
		v, err := scanProfileVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile version: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanProfileVersion(row pgx.Row) (*ProfileVersion, error) {
	var v ProfileVersion
	err := row.Scan(&v.ProfileID, &v.PersonName, &v.VersionNumber, &v.Profile, &v.IsActive,
		&v.Completeness, &v.SessionID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL, 10*time.Second)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SessionRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := "interview_integration_" + uuid.NewString()[:8]

	now := time.Now().UTC().Truncate(time.Microsecond)
	sess := &interview.Session{
		SessionID:       id,
		ParticipantName: "Integration Tester",
		StartTime:       now,
		CurrentTopic:    "category_relationship",
		Messages: []interview.Message{
			{ID: "1", Type: interview.MessageAI, Content: "Hi!", Timestamp: now},
		},
	}
	if err := s.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	sess.ExchangeCount = 1
	sess.IsComplete = true
	sess.CompletedAt = now
	if err := s.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession (overwrite) failed: %v", err)
	}

	got, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ExchangeCount != 1 || !got.IsComplete {
		t.Errorf("expected overwritten snapshot, got %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "Hi!" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
	if !got.CompletedAt.Equal(now) {
		t.Errorf("expected completed_at %v, got %v", now, got.CompletedAt)
	}

	if _, err := s.GetSession(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_ProfileVersions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	person := "Integration " + uuid.NewString()[:8]

	for i := 1; i <= 2; i++ {
		p := extractor.Fallback(person, i, nil)
		v := &ProfileVersion{
			ProfileID:     extractor.ProfileID(person, i),
			PersonName:    person,
			VersionNumber: i,
			Profile:       p,
			IsActive:      true,
			Completeness:  Completeness{ExchangeCount: i, FallbackProfile: true},
		}
		if err := s.CreateProfileVersion(ctx, v); err != nil {
			t.Fatalf("CreateProfileVersion %d failed: %v", i, err)
		}
	}

	latest, err := s.LatestProfileVersion(ctx, person)
	if err != nil {
		t.Fatalf("LatestProfileVersion failed: %v", err)
	}
	if latest.VersionNumber != 2 {
		t.Errorf("expected version 2, got %d", latest.VersionNumber)
	}
	if latest.Profile == nil || !latest.Profile.FallbackProfile {
		t.Errorf("expected profile data round-tripped, got %+v", latest.Profile)
	}

	if err := s.DeactivateOtherVersions(ctx, person, latest.ProfileID); err != nil {
		t.Fatalf("DeactivateOtherVersions failed: %v", err)
	}
	versions, err := s.ListProfileVersions(ctx, person)
	if err != nil {
		t.Fatalf("ListProfileVersions failed: %v", err)
	}
	if len(versions) != 2 || !versions[0].IsActive || versions[1].IsActive {
		t.Errorf("unexpected versions %+v", versions)
	}
}

func TestIntegration_SurveysAndRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sv, _ := predictor.DefaultSurvey("test")
	sv.Name = "integration_" + uuid.NewString()[:8]
	if err := s.CreateSurvey(ctx, sv); err != nil {
		t.Fatalf("CreateSurvey failed: %v", err)
	}
	got, err := s.GetSurvey(ctx, sv.Name)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if len(got.Questions) != len(sv.Questions) {
		t.Errorf("expected %d questions, got %d", len(sv.Questions), len(got.Questions))
	}
	if err := s.DeleteSurvey(ctx, sv.Name); err != nil {
		t.Fatalf("DeleteSurvey failed: %v", err)
	}
	if err := s.DeleteSurvey(ctx, sv.Name); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	run := &ValidationRun{
		ProfileID:  "integration_v1",
		SurveyName: "test",
		Result:     validation.Aggregate([]validation.Comparison{{QuestionID: "a", Correct: true, Confidence: 0.9}}, 0.6),
	}
	if err := s.SaveValidationRun(ctx, run); err != nil {
		t.Fatalf("SaveValidationRun failed: %v", err)
	}
	loaded, err := s.GetValidationRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetValidationRun failed: %v", err)
	}
	if loaded.Result == nil || loaded.Result.AccuracyRate != 1 {
		t.Errorf("unexpected result %+v", loaded.Result)
	}
}

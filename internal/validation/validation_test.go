package validation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
)

type fixedPredictor struct {
	answers map[string]predictor.Result
	errs    map[string]error
	calls   []string
	cancel  context.CancelFunc
}

func (f *fixedPredictor) Predict(ctx context.Context, _ *extractor.Profile, q predictor.Question) (*predictor.Result, error) {
	f.calls = append(f.calls, q.ID)
	if f.cancel != nil && len(f.calls) == 2 {
		f.cancel()
		return nil, ctx.Err()
	}
	if err := f.errs[q.ID]; err != nil {
		return nil, err
	}
	r := f.answers[q.ID]
	r.QuestionID = q.ID
	return &r, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func survey(ids ...string) *predictor.Survey {
	s := &predictor.Survey{Name: "s", Title: "S", TargetAccuracy: 0.6}
	for _, id := range ids {
		s.Questions = append(s.Questions, predictor.Question{ID: id, Question: id + "?", Options: []string{"X", "Y"}})
	}
	return s
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("Yes", "Yes"))
	assert.True(t, Match("  Yes\n", "Yes "))
	assert.False(t, Match("yes", "Yes"))
	assert.False(t, Match("Yes", ""))
}

func TestAggregate_Buckets(t *testing.T) {
	r := Aggregate([]Comparison{
		{QuestionID: "a", Correct: true, Confidence: 0.9},
		{QuestionID: "b", Correct: false, Confidence: 0.8},
		{QuestionID: "c", Correct: true, Confidence: 0.6},
		{QuestionID: "d", Correct: false, Confidence: 0.3},
		{QuestionID: "e", Correct: true, Confidence: 0.7},
	}, 0)

	assert.Equal(t, 5, r.TotalQuestions)
	assert.Equal(t, 3, r.CorrectPredictions)
	assert.InDelta(t, 0.6, r.AccuracyRate, 1e-9)
	assert.InDelta(t, 0.66, r.AvgConfidence, 1e-9)
	assert.Equal(t, 2, r.HighConfidenceCount)
	assert.InDelta(t, 0.5, r.HighConfidenceAccuracy, 1e-9)
	assert.Equal(t, 1, r.LowConfidenceCount)
	assert.Equal(t, 0.0, r.LowConfidenceAccuracy)
	assert.Equal(t, DefaultTargetAccuracy, r.TargetAccuracy)
	assert.True(t, r.MeetsTarget)
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil, 0.6)
	assert.Equal(t, 0, r.TotalQuestions)
	assert.Equal(t, 0.0, r.AccuracyRate)
	assert.Equal(t, 0.0, r.HighConfidenceAccuracy)
	assert.Equal(t, 0.0, r.LowConfidenceAccuracy)
	assert.Equal(t, 0.0, r.AvgConfidence)
	assert.False(t, r.MeetsTarget)
	assert.NotNil(t, r.Comparisons)
}

func TestValidate_SkipsUnansweredQuestions(t *testing.T) {
	p := &fixedPredictor{answers: map[string]predictor.Result{
		"q1": {PredictedAnswer: "X", Confidence: 0.9},
		"q2": {PredictedAnswer: "Y", Confidence: 0.3},
	}}
	v := New(p, discardLogger())

	r, err := v.Validate(context.Background(), extractor.Fallback("Ann", 1, nil), survey("q1", "q2"), map[string]string{"q1": "X"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, r.AccuracyRate)
	assert.Equal(t, 1, r.TotalQuestions)
	assert.Equal(t, []string{"q2"}, r.Skipped)
	assert.Equal(t, []string{"q1"}, p.calls)
	assert.Equal(t, 1, r.HighConfidenceCount)
	assert.Equal(t, 0, r.LowConfidenceCount)
	require.Len(t, r.Comparisons, 1)
	assert.Equal(t, []string{"X", "Y"}, r.Comparisons[0].AvailableOptions)
}

func TestValidate_FailedPredictionsExcluded(t *testing.T) {
	p := &fixedPredictor{
		answers: map[string]predictor.Result{
			"q1": {PredictedAnswer: "X", Confidence: 0.4},
			"q3": {PredictedAnswer: "X", Confidence: 0.4},
		},
		errs: map[string]error{"q2": predictor.ErrInvalidPrediction},
	}
	v := New(p, discardLogger())

	r, err := v.Validate(context.Background(), extractor.Fallback("Ann", 1, nil), survey("q1", "q2", "q3"),
		map[string]string{"q1": "X", "q2": "Y", "q3": "Y"})
	require.NoError(t, err)
	assert.Equal(t, 2, r.TotalQuestions)
	assert.Equal(t, []string{"q2"}, r.Failed)
	assert.InDelta(t, 0.5, r.AccuracyRate, 1e-9)
	assert.InDelta(t, 0.5, r.LowConfidenceAccuracy, 1e-9)
	assert.False(t, r.MeetsTarget)
}

func TestValidate_Idempotent(t *testing.T) {
	p := &fixedPredictor{answers: map[string]predictor.Result{
		"q1": {PredictedAnswer: "X", Confidence: 0.9, Reasoning: "r"},
		"q2": {PredictedAnswer: "X", Confidence: 0.6},
	}}
	v := New(p, discardLogger())
	profile := extractor.Fallback("Ann", 1, nil)
	answers := map[string]string{"q1": "X", "q2": "Y"}

	first, err := v.Validate(context.Background(), profile, survey("q1", "q2"), answers)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), profile, survey("q1", "q2"), answers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &fixedPredictor{
		answers: map[string]predictor.Result{"q1": {PredictedAnswer: "X"}},
		cancel:  cancel,
	}
	v := New(p, discardLogger())

	_, err := v.Validate(ctx, extractor.Fallback("Ann", 1, nil), survey("q1", "q2", "q3"),
		map[string]string{"q1": "X", "q2": "X", "q3": "X"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"q1", "q2"}, p.calls)
}

func TestCompare(t *testing.T) {
	p := &fixedPredictor{answers: map[string]predictor.Result{"q1": {PredictedAnswer: "Y", Confidence: 0.75}}}
	v := New(p, discardLogger())

	c, err := v.Compare(context.Background(), extractor.Fallback("Ann", 1, nil), survey("q1").Questions[0], " Y ")
	require.NoError(t, err)
	assert.True(t, c.Correct)
	assert.Equal(t, "Y", c.RealAnswer)
	assert.Equal(t, "q1?", c.Question)
}

func TestWritePDF(t *testing.T) {
	r := Aggregate([]Comparison{
		{QuestionID: "q1", Question: "Which is it – this or that?", PredictedAnswer: "X", RealAnswer: "X", Correct: true, Confidence: 0.9, Reasoning: "Fits"},
		{QuestionID: "q2", PredictedAnswer: "Y", RealAnswer: "X", Confidence: 0.2},
	}, 0.6)
	r.Skipped = []string{"q3"}

	var buf bytes.Buffer
	err := WritePDF(&buf, ReportHeader{
		RunID:        "run-1",
		ProfileID:    "ann_v1",
		SurveyName:   "validation",
		ModelVersion: "test-model",
		CreatedAt:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}, r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

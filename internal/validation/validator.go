package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
)

// Predictor is the prediction capability a validation run needs.
type Predictor interface {
	Predict(ctx context.Context, profile *extractor.Profile, q predictor.Question) (*predictor.Result, error)
}

type Validator struct {
	predictor Predictor
	logger    *slog.Logger
}

func New(p Predictor, logger *slog.Logger) *Validator {
	return &Validator{predictor: p, logger: logger}
}

// Validate predicts every survey question the person actually answered and
// aggregates the outcome. Questions without a real answer are skipped; a
// failed prediction is recorded and left out of the accuracy figures.
// Cancelling ctx aborts the run.
func (v *Validator) Validate(ctx context.Context, profile *extractor.Profile, survey *predictor.Survey, realAnswers map[string]string) (*Result, error) {
	var (
		comparisons     []Comparison
		skipped, failed []string
	)

	for _, q := range survey.Questions {
		real := strings.TrimSpace(realAnswers[q.ID])
		if real == "" {
			skipped = append(skipped, q.ID)
			continue
		}

		c, err := v.compare(ctx, profile, q, real)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("validation aborted at %s: %w", q.ID, ctxErr)
			}
			v.logger.Warn("prediction failed", "question_id", q.ID, "error", err)
			failed = append(failed, q.ID)
			continue
		}
		comparisons = append(comparisons, *c)
	}

	result := Aggregate(comparisons, survey.TargetAccuracy)
	result.Skipped = skipped
	result.Failed = failed

	v.logger.Info("validation complete",
		"pai_id", profile.PaiID,
		"survey", survey.Name,
		"compared", result.TotalQuestions,
		"skipped", len(skipped),
		"failed", len(failed),
		"accuracy", result.AccuracyRate,
	)
	return result, nil
}

// Compare predicts a single question and checks it against the human answer.
func (v *Validator) Compare(ctx context.Context, profile *extractor.Profile, q predictor.Question, humanAnswer string) (*Comparison, error) {
	return v.compare(ctx, profile, q, strings.TrimSpace(humanAnswer))
}

func (v *Validator) compare(ctx context.Context, profile *extractor.Profile, q predictor.Question, real string) (*Comparison, error) {
	pred, err := v.predictor.Predict(ctx, profile, q)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		QuestionID:       q.ID,
		Category:         q.Category,
		Question:         q.Question,
		PredictedAnswer:  pred.PredictedAnswer,
		RealAnswer:       real,
		Correct:          Match(pred.PredictedAnswer, real),
		Confidence:       pred.Confidence,
		Reasoning:        pred.Reasoning,
		UncertaintyFlags: pred.UncertaintyFlags,
		AvailableOptions: q.Options,
	}, nil
}

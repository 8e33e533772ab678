package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pai/internal/hermes"
	"github.com/MikeSquared-Agency/pai/internal/store"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

// CompareAnswer predicts a single survey question and checks the prediction
// against the human answer. Nothing is stored.
func (p *Processor) CompareAnswer(ctx context.Context, req CompareRequest) (*validation.Comparison, error) {
	if strings.TrimSpace(req.QuestionID) == "" {
		return nil, invalid("question_id is required")
	}
	if strings.TrimSpace(req.HumanAnswer) == "" {
		return nil, invalid("human_answer is required")
	}
	v, err := p.resolveProfile(ctx, req.ProfileID, req.PersonName)
	if err != nil {
		return nil, err
	}
	survey, err := p.Survey(ctx, req.SurveyName)
	if err != nil {
		return nil, err
	}
	q, ok := survey.Lookup(req.QuestionID)
	if !ok {
		return nil, fmt.Errorf("question %s in survey %s: %w", req.QuestionID, survey.Name, store.ErrNotFound)
	}
	return p.validator.Compare(ctx, v.Profile, q, req.HumanAnswer)
}

// RunValidation predicts every answered survey question, aggregates the
// accuracy and stores the run.
func (p *Processor) RunValidation(ctx context.Context, req ValidationRequest) (*store.ValidationRun, error) {
	if len(req.RealAnswers) == 0 {
		return nil, invalid("real_answers is required")
	}
	v, err := p.resolveProfile(ctx, req.ProfileID, req.PersonName)
	if err != nil {
		return nil, err
	}
	survey, err := p.Survey(ctx, req.SurveyName)
	if err != nil {
		return nil, err
	}
	if survey.TargetAccuracy <= 0 {
		survey.TargetAccuracy = p.opts.TargetAccuracy
	}

	result, err := p.validator.Validate(ctx, v.Profile, survey, req.RealAnswers)
	if err != nil {
		return nil, err
	}

	run := &store.ValidationRun{
		ID:                 uuid.NewString(),
		ProfileID:          v.ProfileID,
		SurveyName:         survey.Name,
		ModelVersion:       p.opts.ModelVersion,
		DigitalTwinVersion: v.ProfileID,
		Result:             result,
	}
	if err := p.repo.SaveValidationRun(ctx, run); err != nil {
		return nil, fmt.Errorf("store validation run: %w", err)
	}

	p.events.Emit(hermes.SubjectValidationCompleted, hermes.ValidationCompleted{
		RunID:          run.ID,
		ProfileID:      run.ProfileID,
		SurveyName:     run.SurveyName,
		TotalQuestions: result.TotalQuestions,
		AccuracyRate:   result.AccuracyRate,
		MeetsTarget:    result.MeetsTarget,
	})
	return run, nil
}

// ValidationHistory lists the runs for a profile, newest first.
func (p *Processor) ValidationHistory(ctx context.Context, profileID string) ([]store.ValidationRun, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, invalid("profile_id is required")
	}
	return p.repo.ListValidationRuns(ctx, profileID)
}

func (p *Processor) ValidationRun(ctx context.Context, id string) (*store.ValidationRun, error) {
	return p.repo.GetValidationRun(ctx, id)
}

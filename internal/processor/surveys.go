package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
)

// Surveys returns the stored surveys plus every built-in survey whose name
// is not taken by a stored one, sorted by name.
func (p *Processor) Surveys(ctx context.Context) ([]predictor.Survey, error) {
	stored, err := p.repo.ListSurveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	seen := make(map[string]bool, len(stored))
	for _, s := range stored {
		seen[s.Name] = true
	}
	out := stored
	for _, s := range predictor.DefaultSurveys() {
		if !seen[s.Name] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Survey returns a stored survey, falling back to the built-in one of the
// same name. An empty name means the default validation survey.
func (p *Processor) Survey(ctx context.Context, name string) (*predictor.Survey, error) {
	if strings.TrimSpace(name) == "" {
		name = predictor.DefaultSurveyName
	}
	s, err := p.repo.GetSurvey(ctx, name)
	if err == nil {
		return s, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	if def, ok := predictor.DefaultSurvey(name); ok {
		return def, nil
	}
	return nil, err
}

func (p *Processor) CreateSurvey(ctx context.Context, s *predictor.Survey) error {
	if err := s.Validate(); err != nil {
		return invalid("%v", err)
	}
	if s.TargetAccuracy == 0 {
		s.TargetAccuracy = p.opts.TargetAccuracy
	}
	if err := p.repo.CreateSurvey(ctx, s); err != nil {
		return fmt.Errorf("create survey: %w", err)
	}
	p.logger.Info("survey created", "survey_name", s.Name, "questions", len(s.Questions))
	return nil
}

func (p *Processor) DeleteSurvey(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("survey_name is required")
	}
	return p.repo.DeleteSurvey(ctx, name)
}

func (p *Processor) CreateQuestionnaire(ctx context.Context, q *interview.Questionnaire) error {
	if err := q.Validate(); err != nil {
		return invalid("%v", err)
	}
	if err := p.repo.CreateQuestionnaire(ctx, q); err != nil {
		return fmt.Errorf("create questionnaire: %w", err)
	}
	p.logger.Info("questionnaire created", "questionnaire_id", q.ID, "questions", len(q.Questions))
	return nil
}

func (p *Processor) Questionnaire(ctx context.Context, id string) (*interview.Questionnaire, error) {
	return p.repo.GetQuestionnaire(ctx, id)
}

func (p *Processor) Questionnaires(ctx context.Context, category string) ([]interview.Questionnaire, error) {
	return p.repo.ListQuestionnaires(ctx, strings.TrimSpace(category))
}

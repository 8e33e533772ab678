// Package processor runs Pai's request workflows: it loads state from the
// repository, hands it to the domain packages and persists the outcome.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/hermes"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

// Options are the scalar settings a Processor reports or applies.
type Options struct {
	Backend        string
	ModelVersion   string
	TargetAccuracy float64
}

// Processor orchestrates Pai's interview, profile and validation workflows.
// Every call is an independent load, compute, store cycle.
type Processor struct {
	repo      store.Repository
	sequencer *interview.Sequencer
	extractor *extractor.Extractor
	validator *validation.Validator
	events    *hermes.Client
	opts      Options
	logger    *slog.Logger
}

func New(repo store.Repository, seq *interview.Sequencer, ext *extractor.Extractor, val *validation.Validator, events *hermes.Client, opts Options, logger *slog.Logger) *Processor {
	if opts.TargetAccuracy <= 0 {
		opts.TargetAccuracy = validation.DefaultTargetAccuracy
	}
	return &Processor{
		repo:      repo,
		sequencer: seq,
		extractor: ext,
		validator: val,
		events:    events,
		opts:      opts,
		logger:    logger,
	}
}

// Status summarizes the service for the status endpoint.
func (p *Processor) Status(ctx context.Context) (*Status, error) {
	active, err := p.repo.ListActiveProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active profiles: %w", err)
	}
	return &Status{
		Status:         "ok",
		ActiveProfiles: len(active),
		Storage:        p.opts.Backend,
		Model:          p.opts.ModelVersion,
		Events:         p.events != nil,
	}, nil
}

// loadQuestionnaire returns nil for an empty id.
func (p *Processor) loadQuestionnaire(ctx context.Context, id string) (*interview.Questionnaire, error) {
	if id == "" {
		return nil, nil
	}
	q, err := p.repo.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}
	return q, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

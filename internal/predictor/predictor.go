// Package predictor asks the model how a profiled person would answer a
// closed-option survey question and normalizes the answer.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/llmjson"
)

// ErrInvalidPrediction marks model output that could not be read as a prediction.
var ErrInvalidPrediction = errors.New("invalid prediction response")

// FlagNotAnOption is added when the model answers outside the offered options.
const FlagNotAnOption = "predicted answer is not one of the offered options"

var predictionOptions = anthropic.Options{MaxTokens: 1500, Temperature: 0.3}

type Generator interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, opts anthropic.Options) (string, error)
}

// Result is one predicted answer.
type Result struct {
	QuestionID       string            `json:"question_id"`
	PredictedAnswer  string            `json:"predicted_answer"`
	Confidence       float64           `json:"confidence"`
	Reasoning        string            `json:"reasoning"`
	UncertaintyFlags []string          `json:"uncertainty_flags"`
	OptionAnalysis   map[string]string `json:"option_analysis"`
}

type Predictor struct {
	llm    Generator
	logger *slog.Logger
}

func New(llm Generator, logger *slog.Logger) *Predictor {
	return &Predictor{llm: llm, logger: logger}
}

// Predict returns the answer the profiled person would most likely give.
func (p *Predictor) Predict(ctx context.Context, profile *extractor.Profile, q Question) (*Result, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	options := make([]string, len(q.Options))
	for i, o := range q.Options {
		options[i] = "- " + o
	}
	prompt := fmt.Sprintf(predictionUserPrompt, profileJSON, q.Question, strings.Join(options, "\n"))

	raw, err := p.llm.Complete(ctx, systemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, predictionOptions)
	if err != nil {
		return nil, fmt.Errorf("llm prediction %s: %w", q.ID, err)
	}

	result, err := Parse(raw, q)
	if err != nil {
		p.logger.Warn("unparseable prediction", "question_id", q.ID, "error", err, "raw", raw)
		return nil, err
	}

	p.logger.Debug("prediction complete",
		"pai_id", profile.PaiID,
		"question_id", q.ID,
		"confidence", result.Confidence,
		"flags", len(result.UncertaintyFlags),
	)
	return result, nil
}

type rawPrediction struct {
	PredictedAnswer  any `json:"predicted_answer"`
	Confidence       any `json:"confidence"`
	Reasoning        any `json:"reasoning"`
	UncertaintyFlags any `json:"uncertainty_flags"`
	OptionAnalysis   any `json:"option_analysis"`
}

// Parse reads a prediction out of raw model output for question q.
func Parse(raw string, q Question) (*Result, error) {
	var rp rawPrediction
	if _, err := llmjson.DecodeObject(raw, &rp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrediction, err)
	}

	answer, err := normalizeAnswer(rp.PredictedAnswer)
	if err != nil {
		return nil, err
	}

	r := &Result{
		QuestionID:       q.ID,
		Confidence:       normalizeConfidence(rp.Confidence),
		Reasoning:        text(rp.Reasoning),
		UncertaintyFlags: flags(rp.UncertaintyFlags),
		OptionAnalysis:   map[string]string{},
	}
	if analysis, ok := rp.OptionAnalysis.(map[string]any); ok {
		for k, v := range analysis {
			r.OptionAnalysis[k] = text(v)
		}
	}

	r.PredictedAnswer = answer
	if len(q.Options) > 0 {
		if canonical, ok := matchOption(answer, q.Options); ok {
			r.PredictedAnswer = canonical
		} else {
			r.UncertaintyFlags = append(r.UncertaintyFlags, FlagNotAnOption)
		}
	}
	return r, nil
}

// normalizeAnswer accepts a string or a list of strings. Lists with more than
// one element are joined with ", ".
func normalizeAnswer(v any) (string, error) {
	var answer string
	switch x := v.(type) {
	case string:
		answer = x
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := strings.TrimSpace(text(item)); s != "" {
				parts = append(parts, s)
			}
		}
		answer = strings.Join(parts, ", ")
	case nil:
	default:
		answer = text(x)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: predicted_answer is missing", ErrInvalidPrediction)
	}
	return answer, nil
}

func matchOption(answer string, options []string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), answer) {
			return o, true
		}
	}
	return "", false
}

// normalizeConfidence maps the model's confidence onto [0,1]. Values above 1
// and up to 100 are read as percentages.
func normalizeConfidence(v any) float64 {
	var c float64
	switch x := v.(type) {
	case float64:
		c = x
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(x), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		c = f
	default:
		return 0
	}
	if math.IsNaN(c) {
		return 0
	}
	if c > 1 && c <= 100 {
		c /= 100
	}
	return math.Min(1, math.Max(0, c))
}

func flags(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) != "" {
			out = append(out, x)
		}
	case []any:
		for _, item := range x {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
	"github.com/MikeSquared-Agency/pai/internal/llmjson"
)

var extractionOptions = anthropic.Options{MaxTokens: 2000, Temperature: 0.3}

// Generator is the model capability the extractor needs.
type Generator interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, opts anthropic.Options) (string, error)
}

type Extractor struct {
	llm    Generator
	logger *slog.Logger
}

func New(llm Generator, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// ProfileID returns the versioned profile id, e.g. "jane_doe_v2".
func ProfileID(person string, version int) string {
	name := strings.Join(strings.Fields(strings.ToLower(person)), "_")
	return fmt.Sprintf("%s_v%d", name, version)
}

// Extract turns a transcript into a profile. It always returns a profile: if
// the model call or the parse fails the result is a fallback profile that
// carries the error.
func (e *Extractor) Extract(ctx context.Context, transcript, person string, version int) *Profile {
	if strings.TrimSpace(transcript) == "" {
		return Fallback(person, version, ErrEmptyTranscript)
	}

	e.logger.Info("extracting profile",
		"person", person,
		"version", version,
		"transcript_len", len(transcript),
	)

	messages := []anthropic.Message{
		{Role: "user", Content: fmt.Sprintf(extractionUserPrompt, person, transcript)},
	}
	raw, err := e.llm.Complete(ctx, systemPrompt, messages, extractionOptions)
	if err != nil {
		e.logger.Error("profile extraction call failed", "person", person, "error", err)
		return Fallback(person, version, fmt.Errorf("llm extraction: %w", err))
	}

	profile, err := Parse(raw, person, version)
	if err != nil {
		e.logger.Error("failed to parse extraction response",
			"person", person,
			"error", err,
			"raw", raw,
		)
		return Fallback(person, version, err)
	}

	e.logger.Info("extraction complete",
		"pai_id", profile.PaiID,
		"sections", len(profile.PopulatedSections()),
		"notes", len(profile.DataQualityNotes),
	)
	return profile
}

// Parse recovers a profile from raw model output. Malformed weights are
// repaired or dropped and each repair is recorded in DataQualityNotes.
func Parse(raw, person string, version int) (*Profile, error) {
	var doc map[string]any
	if _, err := llmjson.DecodeObject(raw, &doc); err != nil {
		return nil, &ExtractionError{Raw: raw, Err: err}
	}
	if doc == nil {
		return nil, &ExtractionError{Raw: raw, Err: llmjson.ErrNoJSON}
	}

	p := &Profile{
		PaiID:             ProfileID(person, version),
		PredictionWeights: map[string]float64{},
		BehavioralQuotes:  []string{},
	}
	p.DataQualityNotes = stringList(doc["data_quality_notes"])

	for _, name := range sectionNames {
		dst := p.section(name)
		switch v := doc[name].(type) {
		case map[string]any:
			*dst = v
		case nil:
			*dst = map[string]any{}
		default:
			*dst = map[string]any{}
			p.note("%s was not an object and was discarded", name)
		}
	}

	p.BehavioralQuotes = append(p.BehavioralQuotes, stringList(doc["behavioral_quotes"])...)

	switch weights := doc["prediction_weights"].(type) {
	case map[string]any:
		p.coerceWeights(weights)
	case nil:
	default:
		p.note("prediction_weights was not an object and was discarded")
	}
	return p, nil
}

func (p *Profile) coerceWeights(weights map[string]any) {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		w, ok := toFloat(weights[k])
		if !ok {
			p.note("prediction weight %s dropped: %v is not a number", k, weights[k])
			continue
		}
		if w < 0 || w > 1 {
			clamped := math.Min(1, math.Max(0, w))
			p.note("prediction weight %s clamped from %g to %g", k, w, clamped)
			w = clamped
		}
		p.PredictionWeights[k] = w
	}
}

func (p *Profile) note(format string, args ...any) {
	p.DataQualityNotes = append(p.DataQualityNotes, fmt.Sprintf(format, args...))
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringList(v any) []string {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Fallback is the profile returned when extraction fails. It has every
// section present and empty so downstream consumers never see nil.
func Fallback(person string, version int, cause error) *Profile {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Profile{
		PaiID:              ProfileID(person, version),
		Demographics:       map[string]any{},
		CoreAttitudes:      map[string]any{},
		DecisionPsychology: map[string]any{},
		UsagePatterns:      map[string]any{},
		ValueSystem:        map[string]any{},
		BehavioralQuotes:   []string{},
		PredictionWeights:  map[string]float64{},
		Error:              "Failed to parse profile",
		FallbackProfile:    true,
		PersonName:         person,
		ExtractionError:    msg,
	}
}

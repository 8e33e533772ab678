package extractor

import (
	"errors"
	"fmt"
)

// Profile is the structured personality profile behind a digital twin.
// Sections are loose maps because the model decides their inner shape.
type Profile struct {
	PaiID              string             `json:"pai_id"`
	Demographics       map[string]any     `json:"demographics"`
	CoreAttitudes      map[string]any     `json:"core_attitudes"`
	DecisionPsychology map[string]any     `json:"decision_psychology"`
	UsagePatterns      map[string]any     `json:"usage_patterns"`
	ValueSystem        map[string]any     `json:"value_system"`
	BehavioralQuotes   []string           `json:"behavioral_quotes"`
	PredictionWeights  map[string]float64 `json:"prediction_weights"`
	DataQualityNotes   []string           `json:"data_quality_notes,omitempty"`

	// Set only on fallback profiles.
	Error           string `json:"error,omitempty"`
	FallbackProfile bool   `json:"fallback_profile,omitempty"`
	PersonName      string `json:"person_name,omitempty"`
	ExtractionError string `json:"extraction_error,omitempty"`
}

// Names of the map-valued sections, in schema order.
const (
	SectionDemographics       = "demographics"
	SectionCoreAttitudes      = "core_attitudes"
	SectionDecisionPsychology = "decision_psychology"
	SectionUsagePatterns      = "usage_patterns"
	SectionValueSystem        = "value_system"
)

var sectionNames = []string{
	SectionDemographics,
	SectionCoreAttitudes,
	SectionDecisionPsychology,
	SectionUsagePatterns,
	SectionValueSystem,
}

func (p *Profile) section(name string) *map[string]any {
	switch name {
	case SectionDemographics:
		return &p.Demographics
	case SectionCoreAttitudes:
		return &p.CoreAttitudes
	case SectionDecisionPsychology:
		return &p.DecisionPsychology
	case SectionUsagePatterns:
		return &p.UsagePatterns
	case SectionValueSystem:
		return &p.ValueSystem
	}
	return nil
}

// PopulatedSections lists the non-empty sections, including quotes and weights.
func (p *Profile) PopulatedSections() []string {
	var out []string
	for _, name := range sectionNames {
		if len(*p.section(name)) > 0 {
			out = append(out, name)
		}
	}
	if len(p.BehavioralQuotes) > 0 {
		out = append(out, "behavioral_quotes")
	}
	if len(p.PredictionWeights) > 0 {
		out = append(out, "prediction_weights")
	}
	return out
}

// ExtractionError wraps a model response that could not be turned into a
// profile. Raw is kept for logging; it is never returned to clients.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("parse profile extraction: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrEmptyTranscript is returned before any model call when there is nothing to extract from.
var ErrEmptyTranscript = errors.New("transcript is empty")

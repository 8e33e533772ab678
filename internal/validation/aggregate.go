// Package validation compares predicted survey answers against a person's
// real answers and reports how accurate their digital twin is.
package validation

import "strings"

// DefaultTargetAccuracy is the accuracy a twin needs to count as validated.
const DefaultTargetAccuracy = 0.6

const (
	highConfidence = 0.7
	lowConfidence  = 0.5
)

// Comparison is the outcome for one question.
type Comparison struct {
	QuestionID       string   `json:"question_id"`
	Category         string   `json:"category,omitempty"`
	Question         string   `json:"question,omitempty"`
	PredictedAnswer  string   `json:"predicted_answer"`
	RealAnswer       string   `json:"real_answer"`
	Correct          bool     `json:"correct"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning,omitempty"`
	UncertaintyFlags []string `json:"uncertainty_flags,omitempty"`
	AvailableOptions []string `json:"available_options,omitempty"`
}

// Result summarizes a validation run. It carries no run id or timestamp, so
// validating the same inputs twice yields equal results.
type Result struct {
	TotalQuestions         int          `json:"total_questions"`
	CorrectPredictions     int          `json:"correct_predictions"`
	AccuracyRate           float64      `json:"accuracy_rate"`
	AvgConfidence          float64      `json:"avg_confidence"`
	HighConfidenceAccuracy float64      `json:"high_confidence_accuracy"`
	HighConfidenceCount    int          `json:"high_confidence_count"`
	LowConfidenceAccuracy  float64      `json:"low_confidence_accuracy"`
	LowConfidenceCount     int          `json:"low_confidence_count"`
	TargetAccuracy         float64      `json:"target_accuracy"`
	MeetsTarget            bool         `json:"meets_target"`
	Comparisons            []Comparison `json:"comparisons"`
	Skipped                []string     `json:"skipped,omitempty"`
	Failed                 []string     `json:"failed,omitempty"`
}

// Match reports whether a prediction equals the real answer. Surrounding
// whitespace is ignored; case is not.
func Match(predicted, real string) bool {
	return strings.TrimSpace(predicted) == strings.TrimSpace(real)
}

// Aggregate computes accuracy over the comparisons. A target of zero or less
// means DefaultTargetAccuracy.
func Aggregate(comparisons []Comparison, target float64) *Result {
	if target <= 0 {
		target = DefaultTargetAccuracy
	}
	r := &Result{
		TotalQuestions: len(comparisons),
		TargetAccuracy: target,
		Comparisons:    append([]Comparison{}, comparisons...),
	}

	var (
		confidenceSum           float64
		highCorrect, lowCorrect int
	)
	for _, c := range comparisons {
		confidenceSum += c.Confidence
		if c.Correct {
			r.CorrectPredictions++
		}
		switch {
		case c.Confidence > highConfidence:
			r.HighConfidenceCount++
			if c.Correct {
				highCorrect++
			}
		case c.Confidence < lowConfidence:
			r.LowConfidenceCount++
			if c.Correct {
				lowCorrect++
			}
		}
	}

	r.AccuracyRate = ratio(r.CorrectPredictions, r.TotalQuestions)
	r.HighConfidenceAccuracy = ratio(highCorrect, r.HighConfidenceCount)
	r.LowConfidenceAccuracy = ratio(lowCorrect, r.LowConfidenceCount)
	if r.TotalQuestions > 0 {
		r.AvgConfidence = confidenceSum / float64(r.TotalQuestions)
	}
	r.MeetsTarget = r.TotalQuestions > 0 && r.AccuracyRate >= target
	return r
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

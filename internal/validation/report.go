package validation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportHeader identifies the run a report belongs to.
type ReportHeader struct {
	RunID        string
	ProfileID    string
	SurveyName   string
	ModelVersion string
	CreatedAt    time.Time
}

// WritePDF renders a printable accuracy report.
func WritePDF(w io.Writer, h ReportHeader, r *Result) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Digital twin validation "+h.RunID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Digital Twin Validation Report")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		"Run: " + h.RunID,
		"Profile: " + h.ProfileID,
		"Survey: " + h.SurveyName,
		"Model: " + h.ModelVersion,
		"Date: " + h.CreatedAt.UTC().Format(time.RFC1123),
	} {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	status := "below target"
	if r.MeetsTarget {
		status = "meets target"
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Accuracy %s (%d of %d), %s of %s",
		percent(r.AccuracyRate), r.CorrectPredictions, r.TotalQuestions, status, percent(r.TargetAccuracy)))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Average confidence %s", percent(r.AvgConfidence)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("High confidence (>70%%): %s over %d questions", percent(r.HighConfidenceAccuracy), r.HighConfidenceCount))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Low confidence (<50%%): %s over %d questions", percent(r.LowConfidenceAccuracy), r.LowConfidenceCount))
	pdf.Ln(6)
	if len(r.Skipped) > 0 {
		pdf.MultiCell(0, 6, tr("Skipped (no answer): "+strings.Join(r.Skipped, ", ")), "", "L", false)
	}
	if len(r.Failed) > 0 {
		pdf.MultiCell(0, 6, tr("Prediction failed: "+strings.Join(r.Failed, ", ")), "", "L", false)
	}
	pdf.Ln(6)

	for i, c := range r.Comparisons {
		mark := "MISS"
		if c.Correct {
			mark = "HIT"
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. [%s] %s", i+1, mark, questionLabel(c))), "", "L", false)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr("Predicted: "+c.PredictedAnswer+" ("+percent(c.Confidence)+")"), "", "L", false)
		pdf.MultiCell(0, 5, tr("Actual: "+c.RealAnswer), "", "L", false)
		if c.Reasoning != "" {
			pdf.MultiCell(0, 5, tr("Reasoning: "+c.Reasoning), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func questionLabel(c Comparison) string {
	if c.Question != "" {
		return c.Question
	}
	return c.QuestionID
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/validation"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

// NewPoster returns nil when either the token or the channel is empty, so
// callers can hold an unconfigured poster and check for nil.
func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	if token == "" || channel == "" {
		return nil
	}
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Post sends a mrkdwn message to the channel and returns its timestamp.
func (p *Poster) Post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted to slack", "ts", slackResp.TS, "channel", p.channel)
	return slackResp.TS, nil
}

// PostValidation posts a validation summary.
func (p *Poster) PostValidation(ctx context.Context, h validation.ReportHeader, r *validation.Result) error {
	_, err := p.Post(ctx, FormatValidation(h, r))
	return err
}

// FormatValidation renders a validation result as a short mrkdwn summary
// followed by the misses.
func FormatValidation(h validation.ReportHeader, r *validation.Result) string {
	var sb strings.Builder

	verdict := ":x: below target"
	if r.MeetsTarget {
		verdict = ":white_check_mark: meets target"
	}
	fmt.Fprintf(&sb, "*Validation:* %s on %s (%s)\n", h.ProfileID, h.SurveyName, verdict)
	fmt.Fprintf(&sb, "*Accuracy:* %.1f%% (%d/%d, target %.0f%%)\n",
		r.AccuracyRate*100, r.CorrectPredictions, r.TotalQuestions, r.TargetAccuracy*100)
	fmt.Fprintf(&sb, "*Avg confidence:* %.2f | high: %.1f%% of %d | low: %.1f%% of %d\n",
		r.AvgConfidence,
		r.HighConfidenceAccuracy*100, r.HighConfidenceCount,
		r.LowConfidenceAccuracy*100, r.LowConfidenceCount)

	var misses []validation.Comparison
	for _, c := range r.Comparisons {
		if !c.Correct {
			misses = append(misses, c)
		}
	}
	if len(misses) > 0 {
		fmt.Fprintf(&sb, "\n*Misses: %d*\n", len(misses))
		for _, c := range misses {
			fmt.Fprintf(&sb, "- %s: predicted %q, actual %q (%.2f)\n", c.QuestionID, c.PredictedAnswer, c.RealAnswer, c.Confidence)
		}
	}
	if n := len(r.Skipped) + len(r.Failed); n > 0 {
		fmt.Fprintf(&sb, "_%d skipped, %d failed_\n", len(r.Skipped), len(r.Failed))
	}
	return sb.String()
}

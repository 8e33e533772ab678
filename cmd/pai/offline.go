package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/pai/internal/config"
	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/slack"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

// The offline commands talk to the model only. They log to stderr so stdout
// stays clean JSON.

func offlineSetup() (config.Config, func(), error) {
	cfg := config.Load()
	closeLog := setupLogging(cfg, os.Stderr)
	if cfg.AnthropicAPIKey == "" {
		closeLog()
		return cfg, nil, errors.New("missing required configuration: ANTHROPIC_API_KEY")
	}
	return cfg, closeLog, nil
}

func newExtractCmd() *cobra.Command {
	var (
		name           string
		transcriptPath string
		version        int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a profile from a transcript file and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := offlineSetup()
			if err != nil {
				return err
			}
			defer closeLog()

			transcript, err := readInput(transcriptPath)
			if err != nil {
				return err
			}
			ext := extractor.New(newLLM(cfg), slog.Default())
			profile := ext.Extract(cmd.Context(), string(transcript), name, version)
			return printJSON(cmd.OutOrStdout(), profile)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Participant name")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Transcript file, or - for stdin")
	cmd.Flags().IntVar(&version, "version", 1, "Profile version number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var profilePath, surveyName, surveyFile string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a profile's answers to every question in a survey",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := offlineSetup()
			if err != nil {
				return err
			}
			defer closeLog()

			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			survey, err := loadSurvey(surveyName, surveyFile)
			if err != nil {
				return err
			}

			pred := predictor.New(newLLM(cfg), slog.Default())
			results := make([]*predictor.Result, 0, len(survey.Questions))
			for _, q := range survey.Questions {
				r, err := pred.Predict(cmd.Context(), profile, q)
				if err != nil {
					if ctxErr := cmd.Context().Err(); ctxErr != nil {
						return ctxErr
					}
					slog.Warn("prediction failed", "question_id", q.ID, "error", err)
					continue
				}
				results = append(results, r)
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile JSON file")
	cmd.Flags().StringVar(&surveyName, "survey", predictor.DefaultSurveyName, "Built-in survey name")
	cmd.Flags().StringVar(&surveyFile, "survey-file", "", "Survey YAML file (overrides --survey)")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var profilePath, answersPath, surveyName, surveyFile, pdfPath string
	var notify bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compare a profile's predicted answers with the person's real answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := offlineSetup()
			if err != nil {
				return err
			}
			defer closeLog()

			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			survey, err := loadSurvey(surveyName, surveyFile)
			if err != nil {
				return err
			}
			if survey.TargetAccuracy <= 0 {
				survey.TargetAccuracy = cfg.TargetAccuracy
			}
			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}

			llm := newLLM(cfg)
			v := validation.New(predictor.New(llm, slog.Default()), slog.Default())
			result, err := v.Validate(cmd.Context(), profile, survey, answers)
			if err != nil {
				return err
			}

			header := validation.ReportHeader{
				ProfileID:    profile.PaiID,
				SurveyName:   survey.Name,
				ModelVersion: llm.Model(),
				CreatedAt:    time.Now().UTC(),
			}
			if pdfPath != "" {
				if err := writeReport(pdfPath, header, result); err != nil {
					return err
				}
				slog.Info("report written", "path", pdfPath)
			}
			if notify {
				poster := slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
				if poster == nil {
					return errors.New("--slack needs SLACK_BOT_TOKEN and SLACK_CHANNEL")
				}
				if err := poster.PostValidation(cmd.Context(), header, result); err != nil {
					slog.Warn("failed to post validation to Slack", "error", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Profile JSON file")
	cmd.Flags().StringVar(&answersPath, "answers", "", "YAML map of question id to real answer")
	cmd.Flags().StringVar(&surveyName, "survey", predictor.DefaultSurveyName, "Built-in survey name")
	cmd.Flags().StringVar(&surveyFile, "survey-file", "", "Survey YAML file (overrides --survey)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write a PDF report to this path")
	cmd.Flags().BoolVar(&notify, "slack", false, "Post the summary to the configured Slack channel")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// loadProfile accepts either a bare profile or a stored profile version
// with the profile under profile_data.
func loadProfile(path string) (*extractor.Profile, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Profile *extractor.Profile `json:"profile_data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Profile != nil {
		return wrapped.Profile, nil
	}
	var p extractor.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

func loadSurvey(name, file string) (*predictor.Survey, error) {
	if file != "" {
		data, err := readInput(file)
		if err != nil {
			return nil, err
		}
		return predictor.ParseSurvey(data)
	}
	s, ok := predictor.DefaultSurvey(name)
	if !ok {
		return nil, fmt.Errorf("unknown survey %q", name)
	}
	return s, nil
}

func loadAnswers(path string) (map[string]string, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	answers := map[string]string{}
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return answers, nil
}

func writeReport(path string, h validation.ReportHeader, r *validation.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := validation.WritePDF(f, h, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

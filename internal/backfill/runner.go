package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/processor"
	"github.com/MikeSquared-Agency/pai/internal/slack"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

// Config holds the backfill command configuration.
type Config struct {
	Dir          string
	SingleFile   string // process a single file only
	StatePath    string
	Since        time.Time
	Until        time.Time
	DryRun       bool
	BatchSize    int           // imports between state saves and pauses
	BatchPause   time.Duration // pause after each batch
	MinExchanges int           // minimum participant turns for an export to count
}

// ProfileImporter turns a message history into a new profile version.
type ProfileImporter interface {
	ExtractProfile(ctx context.Context, req processor.ExtractRequest) (*store.ProfileVersion, error)
}

// Runner imports interview exports from disk as profile versions.
type Runner struct {
	cfg      Config
	profiles ProfileImporter
	slack    *slack.Poster
	logger   *slog.Logger
}

// NewRunner creates a backfill runner. poster may be nil.
func NewRunner(cfg Config, profiles ProfileImporter, poster *slack.Poster, logger *slog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MinExchanges <= 0 {
		cfg.MinExchanges = 1
	}
	return &Runner{
		cfg:      cfg,
		profiles: profiles,
		slack:    poster,
		logger:   logger,
	}
}

// Run imports every export that is not yet recorded in the state file.
// Failed imports are not marked processed and are retried on the next run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	paths, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "files", len(paths))

	sum := &Summary{Discovered: len(paths), DryRun: r.cfg.DryRun}

	var exports []*Export
	var fps []fileFingerprint
	for _, path := range paths {
		if state.IsProcessed(path) {
			continue
		}
		e, err := ParseFile(path)
		if err != nil {
			r.logger.Warn("failed to parse export", "path", path, "error", err)
			state.AddError(fmt.Sprintf("parse %s: %v", path, err))
			sum.Failed++
			continue
		}
		if e.UserMessages() < r.cfg.MinExchanges || !r.inDateRange(e) {
			sum.Skipped++
			continue
		}
		exports = append(exports, e)
		fps = append(fps, BuildFingerprint(e))
	}

	duplicates := FindDuplicates(fps)
	var pending []*Export
	for _, e := range exports {
		if duplicates[e.Path] {
			r.logger.Info("skipping duplicate export", "path", e.Path, "person", e.ParticipantName)
			sum.Duplicates++
			if !r.cfg.DryRun {
				state.MarkProcessed(e.Path)
			}
			continue
		}
		pending = append(pending, e)
	}

	state.FilesRemaining = len(pending)
	r.logger.Info("files to import",
		"total", len(pending),
		"duplicates", sum.Duplicates,
		"skipped", sum.Skipped,
	)

	var batch []FileSummary
	inBatch := 0

	for _, e := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("backfill interrupted", "dry_run", r.cfg.DryRun)
			if !r.cfg.DryRun {
				r.save(state)
				r.postSummary(ctx, batch)
			}
			return sum, ctx.Err()
		default:
		}

		fs := FileSummary{
			Path:     e.Path,
			Person:   e.ParticipantName,
			Messages: len(e.Messages),
		}
		if len(e.Messages) > 0 && !e.Messages[0].Timestamp.IsZero() {
			fs.Date = e.Messages[0].Timestamp.Format("2006-01-02")
		}

		if r.cfg.DryRun {
			r.logger.Info("would import", "path", e.Path, "person", e.ParticipantName, "messages", len(e.Messages))
			sum.Files = append(sum.Files, fs)
			continue
		}

		r.logger.Info("importing export", "path", e.Path, "person", e.ParticipantName, "messages", len(e.Messages))
		v, err := r.profiles.ExtractProfile(ctx, processor.ExtractRequest{
			ParticipantName: e.ParticipantName,
			InterviewData:   &processor.InterviewData{Messages: e.Messages},
		})
		if err == nil && v.Profile != nil && v.Profile.FallbackProfile {
			// Stored inactive; keep the file pending so a later run retries it.
			err = fmt.Errorf("extraction fell back for %s: %s", v.ProfileID, v.Profile.ExtractionError)
		}
		if err != nil {
			r.logger.Error("import failed", "path", e.Path, "error", err)
			state.AddError(fmt.Sprintf("import %s: %v", e.Path, err))
			fs.Error = err.Error()
			sum.Failed++
		} else {
			fs.ProfileID = v.ProfileID
			sum.Imported++
			state.ProfilesCreated++
			state.MarkProcessed(e.Path)
			inBatch++
		}
		state.FilesRemaining--
		sum.Files = append(sum.Files, fs)
		batch = append(batch, fs)

		if inBatch >= r.cfg.BatchSize {
			r.logger.Info("batch complete, saving state and pausing", "imported", sum.Imported)
			r.save(state)
			r.postSummary(ctx, batch)
			batch, inBatch = nil, 0

			if r.cfg.BatchPause > 0 {
				select {
				case <-ctx.Done():
					return sum, ctx.Err()
				case <-time.After(r.cfg.BatchPause):
				}
			}
		}
	}

	if !r.cfg.DryRun {
		r.save(state)
		r.postSummary(ctx, batch)
	}

	r.logger.Info("backfill complete",
		"imported", sum.Imported,
		"failed", sum.Failed,
		"duplicates", sum.Duplicates,
		"skipped", sum.Skipped,
		"dry_run", r.cfg.DryRun,
		"state_file", state.Path(),
	)
	return sum, nil
}

func (r *Runner) save(state *BackfillState) {
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save backfill state", "path", state.Path(), "error", err)
	}
}

// postSummary posts a per-day summary to Slack, or logs it when Slack is
// not configured.
func (r *Runner) postSummary(ctx context.Context, files []FileSummary) {
	if len(files) == 0 {
		return
	}

	text := FormatSummary(files)
	if r.slack == nil {
		r.logger.Info("backfill batch summary (no Slack configured)", "summary", text)
		return
	}
	if _, err := r.slack.Post(ctx, text); err != nil {
		r.logger.Warn("failed to post batch summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
	}
}

// FormatSummary formats file summaries grouped by date.
func FormatSummary(files []FileSummary) string {
	byDate := make(map[string][]FileSummary)
	for _, f := range files {
		date := f.Date
		if date == "" {
			date = "unknown"
		}
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var sb strings.Builder
	sb.WriteString("*Profile Backfill Summary*\n")

	for _, date := range dates {
		group := byDate[date]
		imported := 0
		for _, f := range group {
			if f.ProfileID != "" {
				imported++
			}
		}
		fmt.Fprintf(&sb, "\n*%s* (%d files, %d profiles)\n", date, len(group), imported)
		for _, f := range group {
			fmt.Fprintf(&sb, "  - %s [%s]: %d messages", filepath.Base(f.Path), f.Person, f.Messages)
			switch {
			case f.Error != "":
				fmt.Fprintf(&sb, " (error: %s)", f.Error)
			case f.ProfileID != "":
				fmt.Fprintf(&sb, " -> %s", f.ProfileID)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonl":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// inDateRange checks if any message falls within the configured since/until range.
func (r *Runner) inDateRange(e *Export) bool {
	if r.cfg.Since.IsZero() && r.cfg.Until.IsZero() {
		return true
	}

	for _, m := range e.Messages {
		if m.Timestamp.IsZero() {
			continue
		}
		if !r.cfg.Since.IsZero() && m.Timestamp.Before(r.cfg.Since) {
			continue
		}
		if !r.cfg.Until.IsZero() && m.Timestamp.After(r.cfg.Until) {
			continue
		}
		return true
	}
	return false
}

package backfill

import (
	"strings"
	"time"
)

// dedupWindow is the tolerance for matching timestamps across exports.
const dedupWindow = 1 * time.Second

// overlapThreshold is the fraction of timestamps that must match to consider files duplicates.
const overlapThreshold = 0.8

// fileFingerprint holds timing + content info for deduplication.
type fileFingerprint struct {
	Path       string
	Person     string
	Timestamps []time.Time
	Previews   []string // first 3 message texts (trimmed)
}

// BuildFingerprint creates a fingerprint from a parsed export.
func BuildFingerprint(e *Export) fileFingerprint {
	fp := fileFingerprint{
		Path:   e.Path,
		Person: e.ParticipantName,
	}

	for _, m := range e.Messages {
		if !m.Timestamp.IsZero() {
			fp.Timestamps = append(fp.Timestamps, m.Timestamp)
		}
	}

	for i, m := range e.Messages {
		if i >= 3 {
			break
		}
		text := m.Content
		if len(text) > 100 {
			text = text[:100]
		}
		fp.Previews = append(fp.Previews, text)
	}

	return fp
}

// FindDuplicates returns the paths of exports that repeat an earlier export
// of the same person. The first file in the slice wins.
func FindDuplicates(fps []fileFingerprint) map[string]bool {
	duplicates := make(map[string]bool)

	for j := range fps {
		for i := 0; i < j; i++ {
			if duplicates[fps[i].Path] || !strings.EqualFold(fps[i].Person, fps[j].Person) {
				continue
			}
			if isOverlapping(fps[i], fps[j]) {
				duplicates[fps[j].Path] = true
				break
			}
		}
	}

	return duplicates
}

// isOverlapping checks if >80% of b's timestamps appear in a within the
// dedupWindow. Exports without timestamps are compared by their opening
// messages instead.
func isOverlapping(a, b fileFingerprint) bool {
	if len(a.Timestamps) == 0 || len(b.Timestamps) == 0 {
		return samePreviews(a.Previews, b.Previews)
	}

	matches := 0
	for _, bt := range b.Timestamps {
		for _, at := range a.Timestamps {
			diff := bt.Sub(at)
			if diff < 0 {
				diff = -diff
			}
			if diff <= dedupWindow {
				matches++
				break
			}
		}
	}

	return float64(matches)/float64(len(b.Timestamps)) >= overlapThreshold
}

func samePreviews(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package backfill

import (
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/interview"
)

func stamps(base time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Second)
	}
	return out
}

func TestFindDuplicates_SamePersonOverlapping(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	first := fileFingerprint{Path: "a/ann_lee.json", Person: "Ann Lee", Timestamps: stamps(base, 5)}
	second := fileFingerprint{Path: "b/ann_lee.jsonl", Person: "ann lee", Timestamps: stamps(base, 5)}

	dups := FindDuplicates([]fileFingerprint{first, second})
	if !dups["b/ann_lee.jsonl"] {
		t.Error("expected the later export to be marked as duplicate")
	}
	if dups["a/ann_lee.json"] {
		t.Error("the first export should survive")
	}
}

func TestFindDuplicates_DifferentPeople(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	dups := FindDuplicates([]fileFingerprint{
		{Path: "ann.json", Person: "Ann", Timestamps: stamps(base, 3)},
		{Path: "bea.json", Person: "Bea", Timestamps: stamps(base, 3)},
	})
	if len(dups) != 0 {
		t.Errorf("expected no duplicates across people, got %v", dups)
	}
}

func TestFindDuplicates_NoOverlap(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	dups := FindDuplicates([]fileFingerprint{
		{Path: "one.json", Person: "Ann", Timestamps: stamps(base, 2)},
		{Path: "two.json", Person: "Ann", Timestamps: stamps(base.Add(time.Hour), 2)},
	})
	if len(dups) != 0 {
		t.Errorf("expected no duplicates, got %v", dups)
	}
}

func TestFindDuplicates_PartialOverlapBelowThreshold(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	// 2 of 5 timestamps match: 40% < 80%.
	later := append(stamps(base, 2), stamps(base.Add(time.Hour), 3)...)
	dups := FindDuplicates([]fileFingerprint{
		{Path: "one.json", Person: "Ann", Timestamps: stamps(base, 5)},
		{Path: "two.json", Person: "Ann", Timestamps: later},
	})
	if dups["two.json"] {
		t.Error("40% overlap should not count as duplicate")
	}
}

func TestFindDuplicates_WithinTimestampWindow(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	shifted := stamps(base.Add(500*time.Millisecond), 3)
	dups := FindDuplicates([]fileFingerprint{
		{Path: "one.json", Person: "Ann", Timestamps: stamps(base, 3)},
		{Path: "two.json", Person: "Ann", Timestamps: shifted},
	})
	if !dups["two.json"] {
		t.Error("timestamps within the window should match")
	}
}

func TestFindDuplicates_UntimedComparedByPreview(t *testing.T) {
	dups := FindDuplicates([]fileFingerprint{
		{Path: "one.jsonl", Person: "Ann", Previews: []string{"hi", "hello"}},
		{Path: "two.jsonl", Person: "Ann", Previews: []string{"hi", "hello"}},
		{Path: "three.jsonl", Person: "Ann", Previews: []string{"hi", "bye"}},
	})
	if !dups["two.jsonl"] {
		t.Error("identical untimed exports should be duplicates")
	}
	if dups["three.jsonl"] {
		t.Error("different openings should not be duplicates")
	}
}

func TestBuildFingerprint(t *testing.T) {
	base := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	e := &Export{
		Path:            "ann.json",
		ParticipantName: "Ann",
		Messages: []interview.Message{
			{Type: interview.MessageAI, Content: "Hi Ann", Timestamp: base},
			{Type: interview.MessageUser, Content: "Hello", Timestamp: base.Add(time.Second)},
			{Type: interview.MessageAI, Content: "Tell me more"},
			{Type: interview.MessageUser, Content: "Sure", Timestamp: base.Add(3 * time.Second)},
		},
	}

	fp := BuildFingerprint(e)
	if fp.Person != "Ann" || fp.Path != "ann.json" {
		t.Errorf("unexpected identity: %+v", fp)
	}
	if len(fp.Timestamps) != 3 {
		t.Errorf("expected 3 timestamps (zero skipped), got %d", len(fp.Timestamps))
	}
	if len(fp.Previews) != 3 {
		t.Errorf("expected 3 previews, got %d", len(fp.Previews))
	}
}

func TestBuildFingerprint_LongTextTruncated(t *testing.T) {
	e := &Export{Messages: []interview.Message{{Type: interview.MessageUser, Content: strings.Repeat("x", 250)}}}
	fp := BuildFingerprint(e)
	if len(fp.Previews[0]) != 100 {
		t.Errorf("expected preview truncated to 100, got %d", len(fp.Previews[0]))
	}
}

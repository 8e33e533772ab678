package backfill

import "github.com/MikeSquared-Agency/pai/internal/interview"

// Export is one interview transcript read from disk.
type Export struct {
	Path            string
	ParticipantName string
	Messages        []interview.Message
}

// UserMessages counts the participant's turns.
func (e *Export) UserMessages() int {
	n := 0
	for _, m := range e.Messages {
		if m.Type == interview.MessageUser {
			n++
		}
	}
	return n
}

// FileSummary records the outcome for one export.
type FileSummary struct {
	Path      string
	Person    string
	Date      string // first message, YYYY-MM-DD
	Messages  int
	ProfileID string
	Error     string
}

// Summary is the result of a backfill run.
type Summary struct {
	Discovered int
	Duplicates int
	Skipped    int
	Imported   int
	Failed     int
	DryRun     bool
	Files      []FileSummary
}

package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/interview"
)

// rawMessage accepts both the stored message shape (type/content) and chat
// export shapes (role/text, content blocks).
type rawMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Timestamp string          `json:"timestamp"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseFile reads an interview export.
//
// A .json file holds a stored session or any object with participant_name
// and messages. A .jsonl file holds one message per line and takes the
// participant name from the file name, so ann_lee.jsonl belongs to "ann lee".
func ParseFile(path string) (*Export, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(path)
	case ".jsonl":
		return parseJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported export %s", path)
	}
}

func parseJSON(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	var doc struct {
		ParticipantName string       `json:"participant_name"`
		Messages        []rawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	name := strings.TrimSpace(doc.ParticipantName)
	if name == "" {
		name = nameFromPath(path)
	}
	return &Export{Path: path, ParticipantName: name, Messages: convert(doc.Messages)}, nil
}

func parseJSONL(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var raws []rawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		var raw rawMessage
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			continue // skip malformed lines
		}
		raws = append(raws, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return &Export{Path: path, ParticipantName: nameFromPath(path), Messages: convert(raws)}, nil
}

// convert keeps user and interviewer turns with text, ordered by timestamp.
// If any turn lacks a timestamp the file order is kept as is.
func convert(raws []rawMessage) []interview.Message {
	msgs := make([]interview.Message, 0, len(raws))
	for _, raw := range raws {
		var typ interview.MessageType
		switch strings.ToLower(firstNonEmpty(raw.Type, raw.Role)) {
		case "user", "human":
			typ = interview.MessageUser
		case "ai", "assistant":
			typ = interview.MessageAI
		default:
			continue
		}

		text := strings.TrimSpace(firstNonEmpty(extractText(raw.Content), raw.Text))
		if text == "" {
			continue
		}

		ts, _ := time.Parse(time.RFC3339Nano, raw.Timestamp)
		msgs = append(msgs, interview.Message{
			ID:        raw.ID,
			Type:      typ,
			Content:   text,
			Timestamp: ts,
		})
	}

	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			return msgs
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs
}

// extractText reads a plain string or the text blocks of a block array.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func nameFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return strings.Join(strings.Fields(stem), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

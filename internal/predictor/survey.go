package predictor

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Question is a closed-option survey question.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Category string   `json:"category" yaml:"category"`
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
}

// Survey is a named set of questions used to validate a profile.
type Survey struct {
	Name           string     `json:"survey_name" yaml:"survey_name"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty"`
	TargetAccuracy float64    `json:"target_accuracy" yaml:"target_accuracy"`
	Questions      []Question `json:"questions" yaml:"questions"`
	CreatedAt      time.Time  `json:"created_at,omitzero" yaml:"-"`
}

// Lookup returns the question with the given id.
func (s *Survey) Lookup(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks a client-supplied survey before it is stored.
func (s *Survey) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("survey_name is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(s.Questions) == 0 {
		return fmt.Errorf("survey must have at least one question")
	}
	if s.TargetAccuracy < 0 || s.TargetAccuracy > 1 {
		return fmt.Errorf("target_accuracy must be between 0 and 1")
	}
	seen := make(map[string]bool, len(s.Questions))
	for i, q := range s.Questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d must have an id and question text", i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q must have at least 2 options", q.ID)
		}
	}
	return nil
}

//go:embed surveys/*.yaml
var surveyFS embed.FS

// DefaultSurveyName is used when a client does not name a survey.
const DefaultSurveyName = "validation"

var defaultSurveys = mustLoadDefaults()

func mustLoadDefaults() map[string]Survey {
	entries, err := fs.Glob(surveyFS, "surveys/*.yaml")
	if err != nil {
		panic(err)
	}
	out := make(map[string]Survey, len(entries))
	for _, name := range entries {
		data, err := surveyFS.ReadFile(name)
		if err != nil {
			panic(err)
		}
		s, err := ParseSurvey(data)
		if err != nil {
			panic(fmt.Sprintf("embedded survey %s: %v", name, err))
		}
		out[s.Name] = *s
	}
	return out
}

// ParseSurvey decodes and validates a YAML (or JSON) survey document.
func ParseSurvey(data []byte) (*Survey, error) {
	var s Survey
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid survey: %w", err)
	}
	return &s, nil
}

// DefaultSurvey returns a copy of a built-in survey.
func DefaultSurvey(name string) (*Survey, bool) {
	s, ok := defaultSurveys[name]
	if !ok {
		return nil, false
	}
	s.Questions = append([]Question(nil), s.Questions...)
	return &s, true
}

// DefaultSurveys returns the built-in surveys sorted by name.
func DefaultSurveys() []Survey {
	out := make([]Survey, 0, len(defaultSurveys))
	for name := range defaultSurveys {
		s, _ := DefaultSurvey(name)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
)

// Memory is an in-process Repository. Values are deep-copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu             sync.RWMutex
	people         map[string]time.Time
	sessions       map[string]*interview.Session
	profiles       map[string]*ProfileVersion
	questionnaires map[string]*interview.Questionnaire
	surveys        map[string]*predictor.Survey
	runs           map[string]*ValidationRun
	now            func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		people:         make(map[string]time.Time),
		sessions:       make(map[string]*interview.Session),
		profiles:       make(map[string]*ProfileVersion),
		questionnaires: make(map[string]*interview.Questionnaire),
		surveys:        make(map[string]*predictor.Survey),
		runs:           make(map[string]*ValidationRun),
		now:            time.Now,
	}
}

func (m *Memory) Close() {}

func (m *Memory) EnsurePerson(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[name]; !ok {
		m.people[name] = m.now()
	}
	return nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (*interview.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) PutSession(_ context.Context, sess *interview.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.SessionID] = sess.Clone()
	return nil
}

func (m *Memory) CreateProfileVersion(_ context.Context, v *ProfileVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[v.ProfileID]; ok {
		return fmt.Errorf("create profile version: %s already exists", v.ProfileID)
	}
	for _, existing := range m.profiles {
		if strings.EqualFold(existing.PersonName, v.PersonName) && existing.VersionNumber == v.VersionNumber {
			return fmt.Errorf("create profile version: %s already has version %d", v.PersonName, v.VersionNumber)
		}
	}
	if _, ok := m.people[v.PersonName]; !ok {
		m.people[v.PersonName] = m.now()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = m.now()
	}
	m.profiles[v.ProfileID] = deepCopy(v)
	return nil
}

func (m *Memory) GetProfileVersion(_ context.Context, profileID string) (*ProfileVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.profiles[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(v), nil
}

func (m *Memory) LatestProfileVersion(ctx context.Context, person string) (*ProfileVersion, error) {
	versions, err := m.ListProfileVersions(ctx, person)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return &versions[0], nil
}

func (m *Memory) ListProfileVersions(_ context.Context, person string) ([]ProfileVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ProfileVersion
	for _, v := range m.profiles {
		if strings.EqualFold(v.PersonName, person) {
			out = append(out, *deepCopy(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (m *Memory) ListActiveProfiles(_ context.Context) ([]ProfileVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ProfileVersion
	for _, v := range m.profiles {
		if v.IsActive {
			out = append(out, *deepCopy(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeactivateOtherVersions(_ context.Context, person, keepProfileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.profiles {
		if strings.EqualFold(v.PersonName, person) && id != keepProfileID {
			v.IsActive = false
		}
	}
	return nil
}

func (m *Memory) CreateQuestionnaire(_ context.Context, q *interview.Questionnaire) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questionnaires[q.ID]; ok {
		return fmt.Errorf("create questionnaire: %s already exists", q.ID)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	m.questionnaires[q.ID] = deepCopy(q)
	return nil
}

func (m *Memory) GetQuestionnaire(_ context.Context, id string) (*interview.Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questionnaires[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(q), nil
}

func (m *Memory) ListQuestionnaires(_ context.Context, category string) ([]interview.Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []interview.Questionnaire
	for _, q := range m.questionnaires {
		if (category == "" && q.IsPublic) || (category != "" && q.Category == category) {
			out = append(out, *deepCopy(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateSurvey(_ context.Context, s *predictor.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surveys[s.Name]; ok {
		return fmt.Errorf("create survey: %s already exists", s.Name)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.surveys[s.Name] = deepCopy(s)
	return nil
}

func (m *Memory) GetSurvey(_ context.Context, name string) (*predictor.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surveys[name]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(s), nil
}

func (m *Memory) ListSurveys(_ context.Context) ([]predictor.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]predictor.Survey, 0, len(m.surveys))
	for _, s := range m.surveys {
		out = append(out, *deepCopy(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeleteSurvey(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surveys[name]; !ok {
		return ErrNotFound
	}
	delete(m.surveys, name)
	return nil
}

func (m *Memory) SaveValidationRun(_ context.Context, run *ValidationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = m.now()
	}
	m.runs[run.ID] = deepCopy(run)
	return nil
}

func (m *Memory) GetValidationRun(_ context.Context, id string) (*ValidationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(r), nil
}

func (m *Memory) ListValidationRuns(_ context.Context, profileID string) ([]ValidationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ValidationRun
	for _, r := range m.runs {
		if r.ProfileID == profileID {
			out = append(out, *deepCopy(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// deepCopy round-trips v through JSON. Every stored type is plain data, so
// this never fails in practice; a failure is a programming error.
func deepCopy[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("store: copy %T: %v", v, err))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("store: copy %T: %v", v, err))
	}
	return out
}

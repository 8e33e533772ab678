package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

type recorded struct {
	method string
	path   string
	query  string
	prefer string
	body   string
}

// fakePostgREST answers every request with the next canned body and records
// what it was sent.
func fakePostgREST(t *testing.T, status int, responses ...string) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("expected apikey header, got %q", r.Header.Get("apikey"))
		}
		if r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			prefer: r.Header.Get("Prefer"),
			body:   string(body),
		})
		w.WriteHeader(status)
		if i < len(responses) {
			_, _ = w.Write([]byte(responses[i]))
		}
		i++
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, "anon-key", 5*time.Second), &reqs
}

func TestGetSession(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusOK, `[{"session_id":"s1","participant_name":"Ann","messages":[{"id":"1","type":"ai","content":"Hi","timestamp":"2025-03-14T09:26:53Z"}],"exchange_count":2}]`)

	sess, err := c.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.ParticipantName != "Ann" || sess.ExchangeCount != 2 || len(sess.Messages) != 1 {
		t.Errorf("unexpected session %+v", sess)
	}
	got := (*reqs)[0]
	if got.method != http.MethodGet || got.path != "/rest/v1/interview_sessions" {
		t.Errorf("unexpected request %s %s", got.method, got.path)
	}
	if got.query != "session_id=eq.s1" {
		t.Errorf("unexpected query %q", got.query)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	c, _ := fakePostgREST(t, http.StatusOK, `[]`)

	_, err := c.GetSession(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutSession_Upserts(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusCreated, `[]`)

	sess := &interview.Session{SessionID: "s1", ParticipantName: "Ann", CurrentTopic: "category_relationship"}
	if err := c.PutSession(context.Background(), sess); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	got := (*reqs)[0]
	if got.method != http.MethodPost || got.query != "on_conflict=session_id" {
		t.Errorf("unexpected request %s ?%s", got.method, got.query)
	}
	if !strings.Contains(got.prefer, "resolution=merge-duplicates") {
		t.Errorf("expected merge-duplicates prefer, got %q", got.prefer)
	}
	if strings.Contains(got.body, "completed_at") {
		t.Errorf("zero completed_at should be omitted: %s", got.body)
	}
}

func TestCreateProfileVersion(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusCreated,
		``,
		`[{"profile_id":"ann_v1","person_name":"Ann","version_number":1,"is_active":true,"created_at":"2025-03-14T10:00:00Z","profile_data":{"pai_id":"ann_v1"}}]`,
	)

	v := &store.ProfileVersion{
		ProfileID:     "ann_v1",
		PersonName:    "Ann",
		VersionNumber: 1,
		IsActive:      true,
		Profile:       extractor.Fallback("Ann", 1, nil),
	}
	if err := c.CreateProfileVersion(context.Background(), v); err != nil {
		t.Fatalf("CreateProfileVersion: %v", err)
	}
	if len(*reqs) != 2 {
		t.Fatalf("expected person ensure + insert, got %d requests", len(*reqs))
	}
	if (*reqs)[0].path != "/rest/v1/people" || (*reqs)[0].query != "on_conflict=name" {
		t.Errorf("unexpected ensure request %+v", (*reqs)[0])
	}
	if !strings.Contains((*reqs)[0].prefer, "ignore-duplicates") {
		t.Errorf("expected ignore-duplicates, got %q", (*reqs)[0].prefer)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte((*reqs)[1].body), &sent); err != nil {
		t.Fatalf("decode insert body: %v", err)
	}
	if _, ok := sent["created_at"]; ok {
		t.Error("created_at should be left to the database default")
	}
	if _, ok := sent["profile_data"]; !ok {
		t.Error("expected profile_data in insert body")
	}
	if v.CreatedAt.IsZero() {
		t.Error("expected created_at from the returned representation")
	}
}

func TestLatestProfileVersion_Query(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusOK, `[{"profile_id":"ann_v3","person_name":"Ann","version_number":3}]`)

	v, err := c.LatestProfileVersion(context.Background(), "Ann")
	if err != nil {
		t.Fatalf("LatestProfileVersion: %v", err)
	}
	if v.VersionNumber != 3 {
		t.Errorf("expected version 3, got %d", v.VersionNumber)
	}
	q := (*reqs)[0].query
	for _, want := range []string{"person_name=ilike.Ann", "order=version_number.desc", "limit=1"} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}

func TestListProfileVersions_EscapesWildcards(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusOK, `[]`)

	if _, err := c.ListProfileVersions(context.Background(), "Al_ 100%"); err != nil {
		t.Fatalf("ListProfileVersions: %v", err)
	}
	q, err := url.ParseQuery((*reqs)[0].query)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := q.Get("person_name"), `ilike.Al\_ 100\%`; got != want {
		t.Errorf("person_name = %q, want %q", got, want)
	}
}

func TestIlike(t *testing.T) {
	tests := map[string]string{
		"Ann":      "ilike.Ann",
		"jane_doe": `ilike.jane\_doe`,
		`a\b%`:     `ilike.a\\b\%`,
	}
	for in, want := range tests {
		if got := ilike(in); got != want {
			t.Errorf("ilike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeactivateOtherVersions(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusNoContent)

	if err := c.DeactivateOtherVersions(context.Background(), "Ann", "ann_v3"); err != nil {
		t.Fatalf("DeactivateOtherVersions: %v", err)
	}
	got := (*reqs)[0]
	if got.method != http.MethodPatch {
		t.Errorf("expected PATCH, got %s", got.method)
	}
	if !strings.Contains(got.query, "profile_id=neq.ann_v3") {
		t.Errorf("unexpected query %q", got.query)
	}
	if got.body != `{"is_active":false}` {
		t.Errorf("unexpected body %s", got.body)
	}
}

func TestListQuestionnaires_PublicWhenNoCategory(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusOK, `[]`, `[]`)

	if _, err := c.ListQuestionnaires(context.Background(), ""); err != nil {
		t.Fatalf("ListQuestionnaires: %v", err)
	}
	if _, err := c.ListQuestionnaires(context.Background(), "skincare"); err != nil {
		t.Fatalf("ListQuestionnaires: %v", err)
	}
	if !strings.Contains((*reqs)[0].query, "is_public=eq.true") {
		t.Errorf("expected public filter, got %q", (*reqs)[0].query)
	}
	if !strings.Contains((*reqs)[1].query, "category=eq.skincare") {
		t.Errorf("expected category filter, got %q", (*reqs)[1].query)
	}
}

func TestDeleteSurvey_NotFoundWhenNothingDeleted(t *testing.T) {
	c, _ := fakePostgREST(t, http.StatusOK, `[]`)

	err := c.DeleteSurvey(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveValidationRun_AssignsID(t *testing.T) {
	c, reqs := fakePostgREST(t, http.StatusCreated, `[]`)

	run := &store.ValidationRun{ProfileID: "ann_v1", SurveyName: "validation"}
	if err := c.SaveValidationRun(context.Background(), run); err != nil {
		t.Fatalf("SaveValidationRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if !strings.Contains((*reqs)[0].body, run.ID) {
		t.Errorf("expected id in body, got %s", (*reqs)[0].body)
	}
}

func TestErrorResponse(t *testing.T) {
	c, _ := fakePostgREST(t, http.StatusUnauthorized, `{"message":"invalid api key"}`)

	_, err := c.ListSurveys(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "supabase error: 401") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "anon-key", 20*time.Millisecond)
	_, err := c.ListSurveys(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

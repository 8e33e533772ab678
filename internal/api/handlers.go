package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/processor"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

// interview serves both POST /api/interview?action= and
// POST /api/interview/{action}. The path wins over the query and the body.
func (s *Server) interview(w http.ResponseWriter, r *http.Request) {
	var req processor.InterviewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	action := chi.URLParam(r, "action")
	if action == "" {
		action = r.URL.Query().Get("action")
	}
	if action == "" {
		action = req.Action
	}
	op, err := interview.ParseOperation(action)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", processor.ErrInvalidInput, err))
		return
	}

	resp, err := s.proc.Handle(r.Context(), op, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.proc.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	person := r.URL.Query().Get("person_name")
	versions, err := s.proc.Profiles(r.Context(), person)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"person_name": person,
		"profiles":    versions,
		"count":       len(versions),
	})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	v, err := s.proc.Profile(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) extractProfile(w http.ResponseWriter, r *http.Request) {
	var req processor.ExtractRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.proc.ExtractProfile(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) listSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := s.proc.Surveys(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": surveys, "count": len(surveys)})
}

func (s *Server) createSurvey(w http.ResponseWriter, r *http.Request) {
	var sv predictor.Survey
	if err := decode(r, &sv); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.proc.CreateSurvey(r.Context(), &sv); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

func (s *Server) deleteSurvey(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("survey_name")
	if err := s.proc.DeleteSurvey(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

func (s *Server) listQuestionnaires(w http.ResponseWriter, r *http.Request) {
	qs, err := s.proc.Questionnaires(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questionnaires": qs, "count": len(qs)})
}

func (s *Server) createQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var q interview.Questionnaire
	if err := decode(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.proc.CreateQuestionnaire(r.Context(), &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) getQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := s.proc.Questionnaire(r.Context(), chi.URLParam(r, "questionnaireID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// validationSurvey returns the survey a client should show before a run.
func (s *Server) validationSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := s.proc.Survey(r.Context(), r.URL.Query().Get("survey_name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req processor.CompareRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.proc.CompareAnswer(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) runValidation(w http.ResponseWriter, r *http.Request) {
	var req processor.ValidationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.proc.RunValidation(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) validationHistory(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profile_id")
	runs, err := s.proc.ValidationHistory(r.Context(), profileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": profileID,
		"runs":       runs,
		"count":      len(runs),
	})
}

// downloadResults returns a stored run as a JSON attachment, or as a PDF
// report with ?format=pdf.
func (s *Server) downloadResults(w http.ResponseWriter, r *http.Request) {
	run, err := s.proc.ValidationRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		body        bytes.Buffer
		contentType string
		ext         string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		enc := json.NewEncoder(&body)
		enc.SetIndent("", "  ")
		err = enc.Encode(run)
		contentType, ext = "application/json", "json"
	case "pdf":
		if run.Result == nil {
			err = errors.New("validation run has no results")
			break
		}
		err = validation.WritePDF(&body, run.Header(), run.Result)
		contentType, ext = "application/pdf", "pdf"
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown format %q", processor.ErrInvalidInput, format))
		return
	}
	if err != nil {
		s.writeError(w, r, fmt.Errorf("render validation run: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="validation_%s.%s"`, run.ID, ext))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, &body)
}

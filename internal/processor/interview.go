package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/hermes"
	"github.com/MikeSquared-Agency/pai/internal/interview"
)

const defaultParticipant = "User"

// Handle dispatches an interview operation.
func (p *Processor) Handle(ctx context.Context, op interview.Operation, req InterviewRequest) (*InterviewResponse, error) {
	switch op {
	case interview.OpStart:
		return p.Start(ctx, req)
	case interview.OpContinue:
		return p.Continue(ctx, req)
	case interview.OpComplete:
		return p.Complete(ctx, req)
	default:
		return nil, invalid("unknown interview action %q", op)
	}
}

// Start opens and stores a new session.
func (p *Processor) Start(ctx context.Context, req InterviewRequest) (*InterviewResponse, error) {
	name := personKey(req.ParticipantName)
	if name == "" {
		return nil, interview.ErrEmptyName
	}
	q, err := p.loadQuestionnaire(ctx, req.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	sess, err := p.sequencer.Start(name, q)
	if err != nil {
		return nil, err
	}
	if err := p.repo.EnsurePerson(ctx, name); err != nil {
		return nil, err
	}
	if err := p.repo.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	p.events.Emit(hermes.SubjectInterviewStarted, hermes.InterviewStarted{
		SessionID:       sess.SessionID,
		ParticipantName: sess.ParticipantName,
		QuestionnaireID: sess.QuestionnaireID,
		StartedAt:       sess.StartTime,
	})

	resp := response(sess, q)
	resp.Messages = sess.Messages
	resp.AIResponse = sess.LastAIMessage()
	return resp, nil
}

// Continue records one user message and the interviewer's reply. An unknown
// session id with a participant name continues from a placeholder session.
func (p *Processor) Continue(ctx context.Context, req InterviewRequest) (*InterviewResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, invalid("session_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, interview.ErrEmptyMessage
	}

	sess, err := p.repo.GetSession(ctx, req.SessionID)
	placeholder := false
	switch {
	case err == nil:
	case isNotFound(err) && strings.TrimSpace(req.ParticipantName) != "":
		placeholder = true
	default:
		return nil, err
	}

	qid := req.QuestionnaireID
	if sess != nil {
		qid = sess.QuestionnaireID
	}
	q, err := p.loadQuestionnaire(ctx, qid)
	if err != nil {
		return nil, err
	}
	if placeholder {
		sess = p.sequencer.Placeholder(req.SessionID, personKey(req.ParticipantName), q)
	}

	reply, next, err := p.sequencer.Advance(ctx, sess, q, req.Message)
	if err != nil {
		return nil, err
	}
	if err := p.repo.PutSession(ctx, next); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if next.IsComplete {
		p.emitCompleted(next)
	}

	resp := response(next, q)
	resp.AIResponse = reply
	return resp, nil
}

// Complete finishes an interview and builds the next profile version from
// it. The interview comes from the stored session or, when none is stored,
// from interview_data.messages. Completing a session that already has a
// profile returns that profile.
func (p *Processor) Complete(ctx context.Context, req InterviewRequest) (*InterviewResponse, error) {
	inline := req.InterviewData != nil && len(req.InterviewData.Messages) > 0

	var sess *interview.Session
	if req.SessionID != "" {
		stored, err := p.repo.GetSession(ctx, req.SessionID)
		switch {
		case err == nil:
			sess = stored
		case isNotFound(err) && inline:
		default:
			return nil, err
		}
	}
	if sess == nil {
		if !inline {
			return nil, invalid("session_id or interview_data.messages is required")
		}
		name := strings.TrimSpace(req.ParticipantName)
		if name == "" {
			name = defaultParticipant
		}
		sess = p.sequencer.FromMessages(req.SessionID, name, req.InterviewData.Messages)
	}

	q, err := p.loadQuestionnaire(ctx, sess.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	wasComplete := sess.IsComplete
	done := p.sequencer.Complete(sess)

	if done.ProfileID != "" {
		v, err := p.repo.GetProfileVersion(ctx, done.ProfileID)
		if err == nil {
			resp := response(done, q)
			resp.Profile = v
			return resp, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
		p.logger.Warn("session profile missing, extracting again", "session_id", done.SessionID, "profile_id", done.ProfileID)
	}

	v, err := p.createProfile(ctx, done.ParticipantName, interview.Transcript(done), done)
	if err != nil {
		return nil, err
	}
	done.ProfileID = v.ProfileID

	if done.SessionID != "" {
		if err := p.repo.PutSession(ctx, done); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
	}
	if !wasComplete {
		p.emitCompleted(done)
	}

	resp := response(done, q)
	resp.Profile = v
	resp.ProfileCreated = true
	return resp, nil
}

// Session returns the stored snapshot.
func (p *Processor) Session(ctx context.Context, sessionID string) (*interview.Session, error) {
	return p.repo.GetSession(ctx, sessionID)
}

func (p *Processor) emitCompleted(sess *interview.Session) {
	p.events.Emit(hermes.SubjectInterviewCompleted, hermes.InterviewCompleted{
		SessionID:       sess.SessionID,
		ParticipantName: sess.ParticipantName,
		ExchangeCount:   sess.ExchangeCount,
		MessageCount:    len(sess.Messages),
		CompletedAt:     sess.CompletedAt,
	})
}

func response(sess *interview.Session, q *interview.Questionnaire) *InterviewResponse {
	return &InterviewResponse{
		SessionID:       sess.SessionID,
		ParticipantName: sess.ParticipantName,
		ExchangeCount:   sess.ExchangeCount,
		TargetQuestions: q.TargetQuestions(),
		IsComplete:      sess.IsComplete,
		CurrentTopic:    sess.CurrentTopic,
	}
}

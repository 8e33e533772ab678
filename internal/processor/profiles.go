package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/hermes"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

// ExtractProfile builds a new profile version from a raw transcript or a
// message list, without an interview session.
func (p *Processor) ExtractProfile(ctx context.Context, req ExtractRequest) (*store.ProfileVersion, error) {
	name := personKey(req.ParticipantName)
	if name == "" {
		return nil, interview.ErrEmptyName
	}

	var sess *interview.Session
	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" && req.InterviewData != nil {
		sess = p.sequencer.FromMessages("", name, req.InterviewData.Messages)
		transcript = interview.Transcript(sess)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, invalid("transcript or interview_data.messages is required")
	}
	return p.createProfile(ctx, name, transcript, sess)
}

// personKey canonicalizes a participant name so that spellings differing
// only in spacing or underscores share one version sequence.
func personKey(name string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
}

// createProfile extracts version n+1 for person, makes it the active
// version, and deactivates the older ones. A fallback profile is stored
// inactive and leaves the current active version alone. sess may be nil.
func (p *Processor) createProfile(ctx context.Context, person, transcript string, sess *interview.Session) (*store.ProfileVersion, error) {
	person = personKey(person)
	version := 1
	latest, err := p.repo.LatestProfileVersion(ctx, person)
	switch {
	case err == nil:
		version = latest.VersionNumber + 1
	case !isNotFound(err):
		return nil, fmt.Errorf("find latest profile: %w", err)
	}

	profile := p.extractor.Extract(ctx, transcript, person, version)

	v := &store.ProfileVersion{
		ProfileID:     extractor.ProfileID(person, version),
		PersonName:    person,
		VersionNumber: version,
		Profile:       profile,
		IsActive:      !profile.FallbackProfile,
		Completeness: store.Completeness{
			FallbackProfile:   profile.FallbackProfile,
			QualityNotes:      len(profile.DataQualityNotes),
			PopulatedSections: profile.PopulatedSections(),
		},
	}
	if sess != nil {
		v.SessionID = sess.SessionID
		v.Completeness.QuestionnaireID = sess.QuestionnaireID
		v.Completeness.ExchangeCount = sess.ExchangeCount
		v.Completeness.MessageCount = len(sess.Messages)
	}

	if err := p.repo.CreateProfileVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("store profile version: %w", err)
	}
	if v.IsActive {
		if err := p.repo.DeactivateOtherVersions(ctx, person, v.ProfileID); err != nil {
			return nil, fmt.Errorf("deactivate older profiles: %w", err)
		}
	}

	p.logger.Info("profile version created",
		"profile_id", v.ProfileID,
		"person", person,
		"version", version,
		"fallback", profile.FallbackProfile,
	)
	p.events.Emit(hermes.SubjectProfileCreated, hermes.ProfileCreated{
		ProfileID:       v.ProfileID,
		PersonName:      person,
		VersionNumber:   version,
		SessionID:       v.SessionID,
		FallbackProfile: profile.FallbackProfile,
	})
	return v, nil
}

// Profiles lists a person's versions, newest first.
func (p *Processor) Profiles(ctx context.Context, person string) ([]store.ProfileVersion, error) {
	person = personKey(person)
	if person == "" {
		return nil, invalid("person_name is required")
	}
	return p.repo.ListProfileVersions(ctx, person)
}

func (p *Processor) Profile(ctx context.Context, profileID string) (*store.ProfileVersion, error) {
	return p.repo.GetProfileVersion(ctx, profileID)
}

func (p *Processor) ActiveProfiles(ctx context.Context) ([]store.ProfileVersion, error) {
	return p.repo.ListActiveProfiles(ctx)
}

// resolveProfile loads a profile by id. Given only a name it picks the
// person's active version, else the newest one that is not a fallback.
func (p *Processor) resolveProfile(ctx context.Context, profileID, person string) (*store.ProfileVersion, error) {
	if strings.TrimSpace(profileID) != "" {
		return p.repo.GetProfileVersion(ctx, profileID)
	}
	person = personKey(person)
	if person == "" {
		return nil, invalid("profile_id is required")
	}

	versions, err := p.repo.ListProfileVersions(ctx, person)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("profile for %q: %w", person, store.ErrNotFound)
	}
	for i := range versions {
		if versions[i].IsActive {
			return &versions[i], nil
		}
	}
	for i := range versions {
		if !isFallback(&versions[i]) {
			return &versions[i], nil
		}
	}
	return &versions[0], nil
}

func isFallback(v *store.ProfileVersion) bool {
	return v.Completeness.FallbackProfile || (v.Profile != nil && v.Profile.FallbackProfile)
}

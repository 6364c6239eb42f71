// Package summary is the end-of-conversation pipeline: it aggregates the
// transcript and accumulated entities into patient data and the PRO-CTCAE
// mapping, commits the terminal transition and writes both artifacts
// through to durable storage.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DandyChux/raecer-bot/app/client/llm"
	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/conversation"
	"github.com/DandyChux/raecer-bot/app/service/storage"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/DandyChux/raecer-bot/app/service/vocab"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const (
	proCtcaeVersion  = "1.0"
	summarizeBackoff = 2 * time.Second
)

type Service struct {
	cfg        *config.Config
	store      *store.Service
	summarizer Summarizer
	vocab      Vocabulary
	storage    Storage
	backoff    time.Duration
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*store.Service](di),
		do.MustInvoke[*llm.Client](di),
		do.MustInvoke[*vocab.Table](di),
		do.MustInvoke[*storage.Service](di),
	), nil
}

func NewService(cfg *config.Config, sessions *store.Service, summarizer Summarizer, vocabulary Vocabulary, store Storage) *Service {
	return &Service{
		cfg:        cfg,
		store:      sessions,
		summarizer: summarizer,
		vocab:      vocabulary,
		storage:    store,
		backoff:    summarizeBackoff,
	}
}

// End runs the summarization pipeline for a session. Re-ending a completed
// session is rejected; ending a session in error state is a retry of the
// previously failed attempt and rebuilds both artifacts from the preserved
// transcript. A durable-write failure is reported after the completed
// transition has already committed and does not roll it back.
func (s *Service) End(ctx context.Context, id string) (*EndResult, error) {
	release, err := s.store.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	if sess.Status == store.StatusCompleted {
		return nil, fmt.Errorf("session %s already completed: %w", id, store.ErrInvalidState)
	}

	// Dispatched summarization is not cancelled by caller disconnect.
	callCtx := context.WithoutCancel(ctx)

	patientData, err := s.buildPatientData(callCtx, sess)
	if err != nil {
		s.fail(id, err)
		return nil, err
	}

	proCtcae := s.buildProCtcae(sess)

	if err = s.store.Complete(id, patientData, proCtcae); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	slog.Info("Session completed",
		"session_id", id,
		"symptoms", len(patientData.ReportedSymptoms),
		"pro_ctcae_entries", len(proCtcae.Entries),
	)

	result := &EndResult{PatientData: patientData, ProCtcae: proCtcae}

	if err = s.persist(callCtx, id, result); err != nil {
		return result, err
	}

	return result, nil
}

func (s *Service) fail(id string, cause error) {
	if err := s.store.Fail(id, cause.Error()); err != nil {
		slog.Error("Failed to record session error",
			"session_id", id,
			"error", err,
		)
	}
}

func (s *Service) buildPatientData(ctx context.Context, sess store.Session) (*store.PatientData, error) {
	reportedSymptoms := sess.Entities.Terms(symptomCategory)
	previousReaction, kidneyIssues, metformin := riskFlags(sess, reportedSymptoms)

	concerns, fullSummary, err := s.summarize(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("transcript summarization: %w: %w", conversation.ErrUpstream, err)
	}

	return &store.PatientData{
		HasPreviousReaction: previousReaction,
		HasKidneyIssues:     kidneyIssues,
		TakesMetformin:      metformin,
		ReportedSymptoms:    reportedSymptoms,
		PatientConcerns:     concerns,
		FullSummary:         fullSummary,
	}, nil
}

// summarize is off the interactive latency budget, so one retry with
// backoff is allowed.
func (s *Service) summarize(ctx context.Context, sess store.Session) (string, string, error) {
	concerns, fullSummary, err := s.summarizer.Summarize(ctx, sess.Turns, sess.Entities)
	if err == nil {
		return concerns, fullSummary, nil
	}

	slog.Warn("Summarization failed, retrying once",
		"session_id", sess.ID,
		"error", err,
	)

	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case <-time.After(s.backoff):
	}

	return s.summarizer.Summarize(ctx, sess.Turns, sess.Entities)
}

func (s *Service) buildProCtcae(sess store.Session) *store.ProCtcaeData {
	texts := userTexts(sess.Turns)
	seen := make(map[string]bool)

	entries := make([]store.ProCtcaeEntry, 0)
	for _, term := range sess.Entities.Terms(symptomCategory) {
		item, ok := s.vocab.Lookup(term)
		if !ok {
			slog.Debug("Dropping unmapped symptom term",
				"session_id", sess.ID,
				"term", term,
			)
			continue
		}

		// Synonyms can land on the same code; keep the first occurrence.
		if seen[item.Code] {
			continue
		}
		seen[item.Code] = true

		entry := store.ProCtcaeEntry{
			SymptomTerm: item.SymptomTerm,
			Code:        item.Code,
			Presence:    true,
			RawText:     term,
		}

		if severity := s.vocab.DetectSeverity(term, texts); severity != store.SeverityAbsent {
			entry.Severity = severity
		}

		entries = append(entries, entry)
	}

	return &store.ProCtcaeData{
		Version:         proCtcaeVersion,
		AssessmentDate:  time.Now(),
		Entries:         entries,
		ClinicalSummary: clinicalSummary(entries),
	}
}

func clinicalSummary(entries []store.ProCtcaeEntry) string {
	if len(entries) == 0 {
		return "Patient reports no symptoms."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Patient reports %d symptom(s):", len(entries))

	for _, entry := range entries {
		qualifier := "Present"
		if entry.Severity != "" {
			qualifier = titleCase(string(entry.Severity))
		}

		fmt.Fprintf(&builder, "\n- %s (%s)", entry.SymptomTerm, qualifier)
	}

	return builder.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// persist writes both artifacts through to durable storage, after the
// in-memory transition. Both documents go out concurrently.
func (s *Service) persist(ctx context.Context, id string, result *EndResult) error {
	timestamp := time.Now().Format("20060102_150405")

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.storage.Append(ctx, fmt.Sprintf("patient_summary_%s_%s.json", id, timestamp), result.PatientData)
	})
	group.Go(func() error {
		return s.storage.Append(ctx, fmt.Sprintf("pro_ctcae_%s_%s.json", id, timestamp), result.ProCtcae)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("failed to persist summary artifacts: %w", err)
	}

	return nil
}

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DandyChux/raecer-bot/app/client/llm"
	"github.com/DandyChux/raecer-bot/app/client/ner"
	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/samber/do"
)

// Service drives one conversation turn: entity extraction, reply generation
// and the atomic session commit. Turns on the same session are serialized by
// the store's per-session lock; distinct sessions run fully in parallel.
type Service struct {
	cfg       *config.Config
	store     *store.Service
	extractor Extractor
	completer Completer
	predicate EndPredicate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg,
		do.MustInvoke[*store.Service](di),
		do.MustInvoke[*ner.Client](di),
		do.MustInvoke[*llm.Client](di),
	), nil
}

func NewService(cfg *config.Config, sessions *store.Service, extractor Extractor, completer Completer) *Service {
	return &Service{
		cfg:       cfg,
		store:     sessions,
		extractor: extractor,
		completer: completer,
		predicate: EndPredicate{MaxTurns: cfg.Session.MaxTurns},
	}
}

// Start creates a new session and returns the assistant greeting. The
// greeting is presentation seed text, not a transcript turn: the message
// count tracks user/assistant exchanges only.
func (s *Service) Start() StartResult {
	sess := s.store.Create()

	return StartResult{
		SessionID: sess.ID,
		Greeting:  s.cfg.Session.Greeting,
	}
}

// ProcessMessage runs one user turn. Extraction failures degrade to an empty
// entity map; reply-generation failure is fatal to the turn and commits
// nothing, so a caller retry is safe and non-duplicating.
func (s *Service) ProcessMessage(ctx context.Context, id, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}

	release, err := s.store.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	if sess.Status != store.StatusActive {
		return nil, fmt.Errorf("session %s is %s, not active: %w", id, sess.Status, store.ErrInvalidState)
	}

	// Once dispatched, collaborator calls are not cancelled by caller
	// disconnect; only the deadline bounds them. State must commit exactly
	// once even if the caller went away.
	callCtx := context.WithoutCancel(ctx)

	entities := s.extractEntities(callCtx, id, text)

	now := time.Now()
	userTurn := store.Turn{
		Role:      store.RoleUser,
		Content:   text,
		Timestamp: now,
		Entities:  entities,
	}

	merged := sess.Entities.Clone()
	merged.Merge(entities)

	reply, err := s.completer.Complete(callCtx, append(sess.Turns, userTurn), merged)
	if err != nil {
		return nil, fmt.Errorf("reply generation: %w: %w", ErrUpstream, err)
	}

	assistantTurn := store.Turn{
		Role:      store.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}

	count, err := s.store.AppendExchange(id, userTurn, assistantTurn, entities)
	if err != nil {
		return nil, fmt.Errorf("failed to commit exchange: %w", err)
	}

	ended := s.predicate.ShouldEnd(reply, count)

	slog.Info("Processed message",
		"session_id", id,
		"message_count", count,
		"entities", entities.Len(),
		"ended", ended,
	)

	return &TurnResult{
		Reply:             reply,
		Entities:          entities,
		ConversationEnded: ended,
		MessageCount:      count,
	}, nil
}

// extractEntities degrades gracefully: extraction is supplementary and never
// blocks the conversation.
func (s *Service) extractEntities(ctx context.Context, id, text string) store.EntityMap {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NERTimeout())
	defer cancel()

	entities, err := s.extractor.Extract(ctx, text)
	if err != nil {
		slog.Warn("Entity extraction failed, continuing without entities",
			"session_id", id,
			"error", err,
		)
		return store.EntityMap{}
	}

	return entities
}

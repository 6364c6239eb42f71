package conversation

import (
	"context"
	"errors"

	"github.com/DandyChux/raecer-bot/app/service/store"
)

var (
	ErrInvalidInput = errors.New("message is empty")
	ErrUpstream     = errors.New("upstream collaborator failed")
)

// Extractor is the entity-extraction collaborator. It never fails on empty
// input; extraction failures are degraded to an empty map by the engine.
type Extractor interface {
	Extract(ctx context.Context, text string) (store.EntityMap, error)
}

// Completer is the reply-generation collaborator.
type Completer interface {
	Complete(ctx context.Context, turns []store.Turn, entities store.EntityMap) (string, error)
}

// TurnResult is what one processed user message yields.
type TurnResult struct {
	Reply             string          `json:"response"`
	Entities          store.EntityMap `json:"entities"`
	ConversationEnded bool            `json:"conversation_ended"`
	MessageCount      int             `json:"message_count"`
}

// StartResult identifies a freshly created session and its greeting.
type StartResult struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"message"`
}

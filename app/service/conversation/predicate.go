package conversation

import "strings"

// closingPhrase is the phrase the system prompt instructs the model to close
// with once it has collected enough history.
const closingPhrase = "i have everything i need"

// EndPredicate decides whether a conversation has run its course. The signal
// is fuzzy: either the assistant produced the closing phrase, or the
// transcript hit the turn ceiling. It never ends the session by itself; the
// caller acts on the result.
type EndPredicate struct {
	MaxTurns int
}

func (p EndPredicate) ShouldEnd(reply string, turnCount int) bool {
	if strings.Contains(strings.ToLower(reply), closingPhrase) {
		return true
	}

	return p.MaxTurns > 0 && turnCount >= p.MaxTurns
}

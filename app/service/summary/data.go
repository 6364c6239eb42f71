package summary

import (
	"context"

	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/DandyChux/raecer-bot/app/service/vocab"
)

// symptomCategory is the clinical NER tag whose terms are candidate
// symptoms for PRO-CTCAE mapping. The model also emits TEST and TREATMENT,
// which feed risk-flag scanning but never the symptom table.
const symptomCategory = "PROBLEM"

// Summarizer is the reply-generation collaborator's off-path summarization
// contract.
type Summarizer interface {
	Summarize(ctx context.Context, turns []store.Turn, entities store.EntityMap) (concerns, fullSummary string, err error)
}

// Vocabulary is the fixed PRO-CTCAE code table collaborator.
type Vocabulary interface {
	Lookup(term string) (vocab.Item, bool)
	DetectSeverity(term string, userTexts []string) store.Severity
}

// Storage is the durable write-through collaborator.
type Storage interface {
	Append(ctx context.Context, name string, doc any) error
}

// EndResult carries both terminal artifacts back to the caller.
type EndResult struct {
	PatientData *store.PatientData  `json:"patient_data"`
	ProCtcae    *store.ProCtcaeData `json:"pro_ctcae_data"`
}

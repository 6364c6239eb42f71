package vocab

import (
	"testing"

	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	table := NewTable()

	item, ok := table.Lookup("hives")
	require.True(t, ok)
	assert.Equal(t, "Hives", item.SymptomTerm)
	assert.Equal(t, "PRO-CTCAE_hives", item.Code)
}

func TestLookupSynonyms(t *testing.T) {
	table := NewTable()

	tests := []struct {
		term string
		code string
	}{
		{"urticaria", "PRO-CTCAE_hives"},
		{"Itchy", "PRO-CTCAE_itching"},
		{"trouble breathing", "PRO-CTCAE_dyspnea"},
		{"  heart racing  ", "PRO-CTCAE_palpitations"},
		{"CHEST PAIN", "PRO-CTCAE_chest_pain"},
	}

	for _, tt := range tests {
		item, ok := table.Lookup(tt.term)
		require.True(t, ok, "term %q should map", tt.term)
		assert.Equal(t, tt.code, item.Code)
	}
}

func TestLookupUnmapped(t *testing.T) {
	table := NewTable()

	_, ok := table.Lookup("flibbertigibbet")
	assert.False(t, ok)
}

func TestDetectSeverity(t *testing.T) {
	table := NewTable()

	texts := []string{
		"I had severe itching for days",
		"There was also a mild rash",
		"My arm was swollen",
	}

	assert.Equal(t, store.SeveritySevere, table.DetectSeverity("itching", texts))
	assert.Equal(t, store.SeverityMild, table.DetectSeverity("rash", texts))
	assert.Equal(t, store.SeverityAbsent, table.DetectSeverity("hives", texts))
}

func TestDetectSeverityIgnoresUnrelatedLines(t *testing.T) {
	table := NewTable()

	// The qualifier sits on a line that never mentions the term.
	texts := []string{
		"The pain was severe",
		"I also noticed some hives",
	}

	assert.Equal(t, store.SeverityAbsent, table.DetectSeverity("hives", texts))
}

func TestDetectSeverityStrongestWins(t *testing.T) {
	table := NewTable()

	texts := []string{
		"mild nausea at first",
		"later the nausea got severe",
	}

	assert.Equal(t, store.SeveritySevere, table.DetectSeverity("nausea", texts))
}

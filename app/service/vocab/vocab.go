// Package vocab carries the fixed PRO-CTCAE item table and the synonym map
// used to normalize patient-reported symptom terms onto it.
package vocab

import (
	"strings"

	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/samber/do"
)

type Item struct {
	SymptomTerm string
	Code        string
	Description string
}

type Table struct {
	items    map[string]Item
	synonyms map[string]string
}

func New(_ *do.Injector) (*Table, error) {
	return NewTable(), nil
}

func NewTable() *Table {
	return &Table{
		items: map[string]Item{
			"hives":               {SymptomTerm: "Hives", Code: "PRO-CTCAE_hives", Description: "Hives (urticaria)"},
			"itching":             {SymptomTerm: "Itching", Code: "PRO-CTCAE_itching", Description: "Pruritus (itching)"},
			"rash":                {SymptomTerm: "Rash", Code: "PRO-CTCAE_rash", Description: "Skin rash"},
			"skin_redness":        {SymptomTerm: "Skin redness", Code: "PRO-CTCAE_erythema", Description: "Erythema or skin redness"},
			"shortness_of_breath": {SymptomTerm: "Shortness of breath", Code: "PRO-CTCAE_dyspnea", Description: "Dyspnea (shortness of breath)"},
			"wheezing":            {SymptomTerm: "Wheezing", Code: "PRO-CTCAE_wheezing", Description: "Wheezing"},
			"cough":               {SymptomTerm: "Cough", Code: "PRO-CTCAE_cough", Description: "Cough"},
			"swelling":            {SymptomTerm: "Swelling", Code: "PRO-CTCAE_swelling", Description: "Edema (swelling)"},
			"heart_palpitations":  {SymptomTerm: "Heart palpitations", Code: "PRO-CTCAE_palpitations", Description: "Heart palpitations"},
			"nausea":              {SymptomTerm: "Nausea", Code: "PRO-CTCAE_nausea", Description: "Nausea"},
			"vomiting":            {SymptomTerm: "Vomiting", Code: "PRO-CTCAE_vomiting", Description: "Vomiting"},
			"chills":              {SymptomTerm: "Chills", Code: "PRO-CTCAE_chills", Description: "Chills"},
			"dizziness":           {SymptomTerm: "Dizziness", Code: "PRO-CTCAE_dizziness", Description: "Dizziness"},
			"headache":            {SymptomTerm: "Headache", Code: "PRO-CTCAE_headache", Description: "Headache"},
			"anxiety":             {SymptomTerm: "Anxious", Code: "PRO-CTCAE_anxiety", Description: "Anxiety"},
			"chest_tightness":     {SymptomTerm: "Chest pain", Code: "PRO-CTCAE_chest_pain", Description: "Chest tightness or pain"},
		},
		synonyms: map[string]string{
			"hives":                "hives",
			"urticaria":            "hives",
			"welts":                "hives",
			"itching":              "itching",
			"itchy":                "itching",
			"pruritus":             "itching",
			"itch":                 "itching",
			"swelling":             "swelling",
			"edema":                "swelling",
			"puffiness":            "swelling",
			"angioedema":           "swelling",
			"facial swelling":      "swelling",
			"throat swelling":      "swelling",
			"shortness of breath":  "shortness_of_breath",
			"difficulty breathing": "shortness_of_breath",
			"breathlessness":       "shortness_of_breath",
			"dyspnea":              "shortness_of_breath",
			"trouble breathing":    "shortness_of_breath",
			"wheezing":             "wheezing",
			"wheeze":               "wheezing",
			"rash":                 "rash",
			"skin reaction":        "rash",
			"eruption":             "rash",
			"cough":                "cough",
			"coughing":             "cough",
			"nausea":               "nausea",
			"vomiting":             "vomiting",
			"chills":               "chills",
			"dizziness":            "dizziness",
			"dizzy":                "dizziness",
			"headache":             "headache",
			"chest tightness":      "chest_tightness",
			"chest pain":           "chest_tightness",
			"anxiety":              "anxiety",
			"anxious":              "anxiety",
			"palpitations":         "heart_palpitations",
			"heart racing":         "heart_palpitations",
		},
	}
}

// Lookup resolves a raw patient term to its PRO-CTCAE item through the
// synonym map. Unknown terms report ok=false and are dropped by the caller.
func (t *Table) Lookup(term string) (Item, bool) {
	key, ok := t.synonyms[normalize(term)]
	if !ok {
		return Item{}, false
	}

	item, ok := t.items[key]
	return item, ok
}

func normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// severityQualifiers orders qualifier keywords from weakest to strongest so
// the strongest match wins.
var severityQualifiers = []struct {
	severity store.Severity
	keywords []string
}{
	{store.SeverityMild, []string{"mild", "slight", "minor", "a little"}},
	{store.SeverityModerate, []string{"moderate", "bad", "uncomfortable"}},
	{store.SeveritySevere, []string{"severe", "terrible", "extreme", "very severe", "awful"}},
}

// DetectSeverity scans the user-authored transcript for a severity
// qualifier appearing in the same sentence as the term. Sentences that do
// not mention the term are ignored. Returns SeverityAbsent when no qualifier
// is found, in which case the entry is recorded presence-only.
func (t *Table) DetectSeverity(term string, userTexts []string) store.Severity {
	needle := normalize(term)
	detected := store.SeverityAbsent

	for _, text := range userTexts {
		for _, sentence := range splitSentences(strings.ToLower(text)) {
			if !strings.Contains(sentence, needle) {
				continue
			}

			for _, q := range severityQualifiers {
				for _, keyword := range q.keywords {
					if strings.Contains(sentence, keyword) {
						detected = maxSeverity(detected, q.severity)
					}
				}
			}
		}
	}

	return detected
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';'
	})
}

var severityRank = map[store.Severity]int{
	store.SeverityAbsent:   0,
	store.SeverityMild:     1,
	store.SeverityModerate: 2,
	store.SeveritySevere:   3,
}

func maxSeverity(a, b store.Severity) store.Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

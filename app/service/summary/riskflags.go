package summary

import (
	"strings"

	"github.com/DandyChux/raecer-bot/app/service/store"
)

var (
	contrastKeywords  = []string{"contrast", "dye", "iodine"}
	reactionKeywords  = []string{"reaction", "allerg"}
	kidneyKeywords    = []string{"kidney", "renal", "dialysis", "nephropathy", "creatinine"}
	metforminKeywords = []string{"metformin", "glucophage"}
)

// riskFlags scans the user transcript and every extracted entity term for
// the semantic categories behind the three boolean flags. A previous
// contrast reaction needs both a contrast mention and either reaction
// language or at least one reported symptom.
func riskFlags(sess store.Session, reportedSymptoms []string) (previousReaction, kidneyIssues, metformin bool) {
	corpus := buildCorpus(sess)

	contrastMentioned := containsAny(corpus, contrastKeywords)
	reactionMentioned := containsAny(corpus, reactionKeywords)

	previousReaction = contrastMentioned && (reactionMentioned || len(reportedSymptoms) > 0)
	kidneyIssues = containsAny(corpus, kidneyKeywords)
	metformin = containsAny(corpus, metforminKeywords)

	return previousReaction, kidneyIssues, metformin
}

func buildCorpus(sess store.Session) []string {
	corpus := userTexts(sess.Turns)

	for _, category := range sess.Entities.Categories() {
		corpus = append(corpus, sess.Entities.Terms(category)...)
	}

	return corpus
}

func userTexts(turns []store.Turn) []string {
	texts := make([]string, 0, len(turns))

	for _, turn := range turns {
		if turn.Role == store.RoleUser {
			texts = append(texts, turn.Content)
		}
	}

	return texts
}

func containsAny(corpus, keywords []string) bool {
	for _, text := range corpus {
		lowered := strings.ToLower(text)

		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				return true
			}
		}
	}

	return false
}

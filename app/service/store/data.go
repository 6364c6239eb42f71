package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/elliotchance/pie/v2"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidState = errors.New("invalid session state")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Entities are set on user turns only.
	Entities EntityMap `json:"entities,omitempty"`
}

type Severity string

const (
	SeverityAbsent   Severity = "absent"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

type PatientData struct {
	HasPreviousReaction bool     `json:"has_previous_reaction"`
	HasKidneyIssues     bool     `json:"has_kidney_issues"`
	TakesMetformin      bool     `json:"takes_metformin"`
	ReportedSymptoms    []string `json:"reported_symptoms"`
	PatientConcerns     string   `json:"patient_concerns"`
	FullSummary         string   `json:"full_summary"`
}

type ProCtcaeEntry struct {
	SymptomTerm string   `json:"symptom_term"`
	Code        string   `json:"code"`
	Presence    bool     `json:"presence"`
	Severity    Severity `json:"severity,omitempty"`
	RawText     string   `json:"patient_reported_text"`
}

type ProCtcaeData struct {
	Version         string          `json:"pro_ctcae_version"`
	AssessmentDate  time.Time       `json:"assessment_date"`
	Entries         []ProCtcaeEntry `json:"entries"`
	ClinicalSummary string          `json:"clinical_summary"`
}

type Session struct {
	ID           string        `json:"session_id"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Turns        []Turn        `json:"turns"`
	Entities     EntityMap     `json:"accumulated_entities"`
	PatientData  *PatientData  `json:"patient_data,omitempty"`
	ProCtcae     *ProCtcaeData `json:"pro_ctcae_data,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Summary is the listing view of a session, without transcript or artifacts.
type Summary struct {
	ID           string    `json:"session_id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// EntityMap maps an extraction category to its reported terms. Insertion order
// is preserved both across categories and within a category, and terms are
// deduplicated per category.
type EntityMap struct {
	categories []string
	terms      map[string][]string
}

// Add appends a term to a category, keeping first-seen order. It reports
// whether the term was new for that category.
func (m *EntityMap) Add(category, term string) bool {
	if m.terms == nil {
		m.terms = make(map[string][]string)
	}

	existing, ok := m.terms[category]
	if !ok {
		m.categories = append(m.categories, category)
	}

	if pie.Contains(existing, term) {
		return false
	}

	m.terms[category] = append(existing, term)
	return true
}

// Merge unions other into m, category by category, keeping first-seen order.
func (m *EntityMap) Merge(other EntityMap) {
	for _, category := range other.categories {
		for _, term := range other.terms[category] {
			m.Add(category, term)
		}
	}
}

func (m EntityMap) Categories() []string {
	return append([]string(nil), m.categories...)
}

func (m EntityMap) Terms(category string) []string {
	return append([]string(nil), m.terms[category]...)
}

func (m EntityMap) Len() int {
	total := 0
	for _, terms := range m.terms {
		total += len(terms)
	}
	return total
}

func (m EntityMap) IsEmpty() bool {
	return len(m.categories) == 0
}

func (m EntityMap) Clone() EntityMap {
	var out EntityMap
	out.Merge(m)
	return out
}

func (m EntityMap) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(m.categories))
	for _, category := range m.categories {
		out[category] = m.terms[category]
	}
	return json.Marshal(out)
}

func (m *EntityMap) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = EntityMapFrom(raw)
	return nil
}

// EntityMapFrom builds an EntityMap from a plain category map. Category order
// is sorted for determinism since Go maps carry none.
func EntityMapFrom(raw map[string][]string) EntityMap {
	var m EntityMap

	for _, category := range pie.Sort(pie.Keys(raw)) {
		for _, term := range raw[category] {
			m.Add(category, term)
		}
	}

	return m
}

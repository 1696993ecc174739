package interview

import (
	"time"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

const (
	MinAge = 0
	MaxAge = 120
)

// Status is the lifecycle state of a PatientCase.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// EvidenceState is the answer recorded for a single concept.
type EvidenceState string

const (
	StatePresent EvidenceState = "present"
	StateAbsent  EvidenceState = "absent"
	StateUnknown EvidenceState = "unknown"
)

// Valid reports whether s is one of the three allowed states.
func (s EvidenceState) Valid() bool {
	switch s {
	case StatePresent, StateAbsent, StateUnknown:
		return true
	}
	return false
}

// EvidenceSource records where a piece of evidence came from. The reasoning
// backend requires it; the stopping logic ignores it.
type EvidenceSource string

const (
	SourceInitial    EvidenceSource = "initial"
	SourcePredefined EvidenceSource = "predefined"
	SourceSuggested  EvidenceSource = "suggested"
)

type Demographics struct {
	Age int `json:"age"`
	Sex Sex `json:"sex"`
}

type Evidence struct {
	ConceptID string         `json:"concept_id"`
	State     EvidenceState  `json:"state"`
	Source    EvidenceSource `json:"source"`
	IsInitial bool           `json:"is_initial"`
}

// ScoredCondition is one ranked candidate diagnosis. Probability is only
// comparable with other conditions from the same reasoning result.
type ScoredCondition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CommonName  string  `json:"common_name,omitempty"`
	Probability float64 `json:"probability"`
	Severity    string  `json:"severity,omitempty"`
	Acuteness   string  `json:"acuteness,omitempty"`
	Prevalence  string  `json:"prevalence,omitempty"`
}

type QuestionKind string

const (
	QuestionSingle        QuestionKind = "single"
	QuestionGroupSingle   QuestionKind = "groupSingle"
	QuestionGroupMultiple QuestionKind = "groupMultiple"
)

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type QuestionItem struct {
	ConceptID string   `json:"concept_id"`
	Name      string   `json:"name"`
	Choices   []Choice `json:"choices"`
}

// Question is the pending prompt shown to the patient. A grouped question
// carries several items and yields several evidence updates at once.
type Question struct {
	Kind   QuestionKind   `json:"kind"`
	Prompt string         `json:"prompt"`
	Items  []QuestionItem `json:"items"`
}

// HasConcept reports whether conceptID is one of the question's items.
func (q *Question) HasConcept(conceptID string) bool {
	for _, it := range q.Items {
		if it.ConceptID == conceptID {
			return true
		}
	}
	return false
}

type TriageLevel string

const (
	TriageEmergency    TriageLevel = "emergency"
	TriageConsultation TriageLevel = "consultation"
	TriageSelfCare     TriageLevel = "selfCare"
)

type TriageResult struct {
	Level             TriageLevel       `json:"level"`
	Label             string            `json:"label"`
	Description       string            `json:"description"`
	SeriousConditions []ScoredCondition `json:"serious_conditions"`
}

// PatientCase is a single diagnostic session. It is owned and mutated by an
// Interview; everything else works on snapshots returned by Clone.
type PatientCase struct {
	ID              string            `json:"id"`
	Demographics    Demographics      `json:"demographics"`
	Evidence        []Evidence        `json:"evidence"`
	CurrentQuestion *Question         `json:"current_question"`
	Conditions      []ScoredCondition `json:"conditions"`
	Triage          *TriageResult     `json:"triage,omitempty"`
	QuestionsAsked  int               `json:"questions_asked"`
	ShouldStop      bool              `json:"should_stop"`
	Status          Status            `json:"status"`
	StartedAt       time.Time         `json:"started_at"`
	LastUpdatedAt   time.Time         `json:"last_updated_at"`
}

// Clone returns a deep copy of the case.
func (c *PatientCase) Clone() *PatientCase {
	if c == nil {
		return nil
	}
	out := *c
	if c.Evidence != nil {
		out.Evidence = make([]Evidence, len(c.Evidence))
		copy(out.Evidence, c.Evidence)
	}
	out.Conditions = cloneConditions(c.Conditions)
	if c.CurrentQuestion != nil {
		q := *c.CurrentQuestion
		q.Items = make([]QuestionItem, len(c.CurrentQuestion.Items))
		for i, it := range c.CurrentQuestion.Items {
			it.Choices = append([]Choice(nil), it.Choices...)
			q.Items[i] = it
		}
		out.CurrentQuestion = &q
	}
	if c.Triage != nil {
		t := *c.Triage
		t.SeriousConditions = cloneConditions(c.Triage.SeriousConditions)
		out.Triage = &t
	}
	return &out
}

func cloneConditions(in []ScoredCondition) []ScoredCondition {
	if in == nil {
		return nil
	}
	out := make([]ScoredCondition, len(in))
	copy(out, in)
	return out
}

// PresentCount returns the number of evidence items in the present state.
func (c *PatientCase) PresentCount() int {
	n := 0
	for _, e := range c.Evidence {
		if e.State == StatePresent {
			n++
		}
	}
	return n
}

// StepResult is what a Reasoner returns for one diagnosis round.
type StepResult struct {
	Question   *Question
	Conditions []ScoredCondition
	ShouldStop bool
}

// ConceptMatch is a search hit for incremental symptom lookup.
type ConceptMatch struct {
	ConceptID string `json:"concept_id"`
	Label     string `json:"label"`
	Kind      string `json:"kind"`
}

// Answer is one (concept, state) reply to the outstanding question.
type Answer struct {
	ConceptID string        `json:"concept_id" validate:"required"`
	State     EvidenceState `json:"state" validate:"required,oneof=present absent unknown"`
}

// Package reasoning provides the interview.Reasoner implementations: a
// deterministic local reasoner over the knowledge table, a remote adapter
// for a hosted diagnostic API, and construction-time selection between
// them.
package reasoning

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

const (
	maxProbability  = 0.95
	minProbability  = 0.1
	maxConditions   = 5
	maxSerious      = 2
	defaultSearchN  = 10
	probabilityUnit = 10000
)

var answerChoices = []interview.Choice{
	{ID: string(interview.StatePresent), Label: "Yes"},
	{ID: string(interview.StateAbsent), Label: "No"},
	{ID: string(interview.StateUnknown), Label: "Don't know"},
}

// Local scores conditions by summing fixed concept weights. It never makes a
// network call and never returns a transport error.
type Local struct {
	table  *knowledge.Table
	limits interview.Limits
}

var _ interview.Reasoner = (*Local)(nil)

func NewLocal(table *knowledge.Table, limits interview.Limits) *Local {
	return &Local{table: table, limits: limits}
}

// NextStep scores the case and picks the next question. ShouldStop is set
// when the question budget is spent, when the present-evidence cap is
// reached, or when every concept in the table has already been asked about.
// A stopping result never carries a question.
func (l *Local) NextStep(ctx context.Context, c *interview.PatientCase) (*interview.StepResult, error) {
	if err := checkCase(c); err != nil {
		return nil, err
	}
	if !interview.HasInitialEvidence(c.Evidence) {
		return nil, &interview.InvalidCaseError{Reason: "no evidence is marked initial"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &interview.StepResult{
		Conditions: l.score(c.Evidence),
		Question:   l.nextQuestion(c.Evidence),
	}
	res.ShouldStop = res.Question == nil ||
		c.QuestionsAsked >= l.limits.MaxQuestions ||
		c.PresentCount() >= l.limits.MaxPresentEvidence
	if res.ShouldStop {
		res.Question = nil
	}
	return res, nil
}

func (l *Local) ClassifyTriage(ctx context.Context, c *interview.PatientCase) (*interview.TriageResult, error) {
	if err := checkCase(c); err != nil {
		return nil, err
	}
	if len(c.Evidence) == 0 {
		return nil, &interview.InvalidCaseError{Reason: "triage requires at least one evidence item"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level := interview.TriageSelfCare
	switch {
	case l.hasSeriousFinding(c.Evidence):
		level = interview.TriageEmergency
	case c.PresentCount() >= 3:
		level = interview.TriageConsultation
	}

	band := severityBand(level)
	serious := []interview.ScoredCondition{}
	for _, sc := range l.score(c.Evidence) {
		if len(serious) == maxSerious {
			break
		}
		if sc.Severity == string(band) {
			serious = append(serious, sc)
		}
	}

	tr := triageText[level]
	tr.Level = level
	tr.SeriousConditions = serious
	return &tr, nil
}

func (l *Local) Search(ctx context.Context, phrase string) ([]interview.ConceptMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := l.table.Search(phrase, defaultSearchN)
	out := make([]interview.ConceptMatch, len(hits))
	for i, h := range hits {
		out[i] = interview.ConceptMatch{ConceptID: h.ConceptID, Label: h.Label, Kind: h.Kind}
	}
	return out, nil
}

func checkCase(c *interview.PatientCase) error {
	if c == nil {
		return &interview.InvalidCaseError{Reason: "case is required"}
	}
	if err := interview.ValidateDemographics(c.Demographics.Age, c.Demographics.Sex); err != nil {
		return &interview.InvalidCaseError{Reason: err.Error()}
	}
	return nil
}

// score sums weights of present concepts per condition, caps and drops as
// configured, and ranks by probability with table order breaking ties.
func (l *Local) score(evidence []interview.Evidence) []interview.ScoredCondition {
	present := presentSet(evidence)
	out := []interview.ScoredCondition{}
	for _, cond := range l.table.Conditions() {
		var p float64
		for _, w := range cond.Weights {
			if present[w.ConceptID] {
				p += w.Weight
			}
		}
		p = math.Round(p*probabilityUnit) / probabilityUnit
		if p > maxProbability {
			p = maxProbability
		}
		if p <= minProbability {
			continue
		}
		out = append(out, interview.ScoredCondition{
			ID:          cond.ID,
			Name:        cond.Name,
			CommonName:  cond.CommonName,
			Probability: p,
			Severity:    string(cond.Severity),
			Acuteness:   cond.Acuteness,
			Prevalence:  cond.Prevalence,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Probability > out[b].Probability })
	if len(out) > maxConditions {
		out = out[:maxConditions]
	}
	return out
}

// nextQuestion prefers an unasked concept sharing a cluster with a present
// finding, in evidence order, and otherwise takes the first unasked concept
// in table order.
func (l *Local) nextQuestion(evidence []interview.Evidence) *interview.Question {
	asked := make(map[string]bool, len(evidence))
	for _, e := range evidence {
		asked[e.ConceptID] = true
	}
	concepts := l.table.Concepts()

	for _, e := range evidence {
		if e.State != interview.StatePresent {
			continue
		}
		cluster := l.table.Cluster(e.ConceptID)
		if cluster == "" {
			continue
		}
		for _, c := range concepts {
			if c.Cluster == cluster && !asked[c.ID] {
				return questionFor(c)
			}
		}
	}
	for _, c := range concepts {
		if !asked[c.ID] {
			return questionFor(c)
		}
	}
	return nil
}

func questionFor(c knowledge.Concept) *interview.Question {
	prompt := c.Question
	if prompt == "" {
		prompt = fmt.Sprintf("Do you have %s?", lowerFirst(c.Name))
	}
	return &interview.Question{
		Kind:   interview.QuestionSingle,
		Prompt: prompt,
		Items: []interview.QuestionItem{{
			ConceptID: c.ID,
			Name:      c.Name,
			Choices:   append([]interview.Choice(nil), answerChoices...),
		}},
	}
}

func (l *Local) hasSeriousFinding(evidence []interview.Evidence) bool {
	for _, e := range evidence {
		if e.State != interview.StatePresent {
			continue
		}
		if c, ok := l.table.Concept(e.ConceptID); ok && c.IsSerious() {
			return true
		}
	}
	return false
}

func presentSet(evidence []interview.Evidence) map[string]bool {
	m := make(map[string]bool, len(evidence))
	for _, e := range evidence {
		if e.State == interview.StatePresent {
			m[e.ConceptID] = true
		}
	}
	return m
}

func severityBand(level interview.TriageLevel) knowledge.Severity {
	switch level {
	case interview.TriageEmergency:
		return knowledge.SeveritySevere
	case interview.TriageConsultation:
		return knowledge.SeverityModerate
	default:
		return knowledge.SeverityMild
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

var triageText = map[interview.TriageLevel]interview.TriageResult{
	interview.TriageEmergency: {
		Label:       "Seek emergency care",
		Description: "Your symptoms may point to a serious condition. Call emergency services or go to the nearest emergency department now.",
	},
	interview.TriageConsultation: {
		Label:       "Consult a doctor",
		Description: "Your symptoms should be assessed by a doctor. Book a consultation within the next 24 hours.",
	},
	interview.TriageSelfCare: {
		Label:       "Self-care",
		Description: "Your symptoms can usually be managed at home. Contact a doctor if they get worse or do not improve.",
	},
}

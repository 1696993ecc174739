package interview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reasoner is the diagnostic reasoning backend. Implementations carry no
// per-case memory beyond what is passed in the case itself.
type Reasoner interface {
	// NextStep scores conditions for the case and proposes the next question.
	// It fails with *InvalidCaseError unless the case has initial evidence.
	NextStep(ctx context.Context, c *PatientCase) (*StepResult, error)
	ClassifyTriage(ctx context.Context, c *PatientCase) (*TriageResult, error)
	Search(ctx context.Context, phrase string) ([]ConceptMatch, error)
}

// Limits bounds the length of an interview.
type Limits struct {
	MaxQuestions       int
	MaxPresentEvidence int
}

func DefaultLimits() Limits {
	return Limits{MaxQuestions: 5, MaxPresentEvidence: 4}
}

// Interview owns exactly one PatientCase and is its only mutator. Every
// operation works on a copy of the case and commits it only after the
// reasoner call succeeded, so a failed or cancelled call leaves the case as
// it was.
type Interview struct {
	mu       sync.Mutex
	reasoner Reasoner
	limits   Limits
	logger   zerolog.Logger
	now      func() time.Time
	c        *PatientCase
}

type Option func(*Interview)

func WithLogger(l zerolog.Logger) Option {
	return func(i *Interview) { i.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(i *Interview) { i.now = now }
}

func New(r Reasoner, limits Limits, opts ...Option) *Interview {
	i := &Interview{
		reasoner: r,
		limits:   limits,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func ValidateDemographics(age int, sex Sex) error {
	if age < MinAge || age > MaxAge {
		return validationErr("age", "must be between %d and %d (got %d)", MinAge, MaxAge, age)
	}
	if sex != SexMale && sex != SexFemale {
		return validationErr("sex", "must be male or female (got %q)", sex)
	}
	return nil
}

// Start creates the case. The first concept is marked initial; when any
// concepts are supplied the reasoner is queried once for the first question.
func (i *Interview) Start(ctx context.Context, age int, sex Sex, conceptIDs []string) (*PatientCase, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.c != nil {
		return nil, validationErr("", "interview already started; reset it before starting again")
	}
	if err := ValidateDemographics(age, sex); err != nil {
		return nil, err
	}

	evidence := []Evidence{}
	seen := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		e, err := CreateEvidence(id, StatePresent, SourceInitial, len(evidence) == 0)
		if err != nil {
			return nil, err
		}
		seen[id] = true
		evidence = append(evidence, e)
	}

	now := i.now()
	c := &PatientCase{
		ID:            uuid.NewString(),
		Demographics:  Demographics{Age: age, Sex: sex},
		Evidence:      evidence,
		Conditions:    []ScoredCondition{},
		Status:        StatusActive,
		StartedAt:     now,
		LastUpdatedAt: now,
	}

	if len(evidence) > 0 {
		res, err := i.step(ctx, c)
		if err != nil {
			return nil, err
		}
		applyStep(c, res)
	}

	i.c = c
	i.logger.Info().
		Str("case_id", c.ID).
		Int("initial_evidence", len(evidence)).
		Bool("has_question", c.CurrentQuestion != nil).
		Msg("interview started")
	return c.Clone(), nil
}

// AnswerQuestion records a single answer to the outstanding question.
func (i *Interview) AnswerQuestion(ctx context.Context, conceptID string, state EvidenceState) (*PatientCase, error) {
	return i.AnswerGroup(ctx, []Answer{{ConceptID: conceptID, State: state}})
}

// AnswerGroup applies every answer for the outstanding question at once.
// Either all of them land or none do.
func (i *Interview) AnswerGroup(ctx context.Context, answers []Answer) (*PatientCase, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, err := i.activeCase()
	if err != nil {
		return nil, err
	}
	if c.CurrentQuestion == nil {
		return nil, validationErr("question", "no question is awaiting an answer")
	}
	if err := validateAnswers(c.CurrentQuestion, answers); err != nil {
		return nil, err
	}

	next := c.Clone()
	for _, a := range answers {
		next.Evidence = UpsertEvidence(next.Evidence, a.ConceptID, a.State)
	}
	next.Evidence = ensureInitial(next.Evidence)
	next.QuestionsAsked++

	if err := i.advance(ctx, next); err != nil {
		i.logger.Warn().Err(err).Str("case_id", c.ID).Msg("answer not applied")
		return nil, err
	}
	i.c = next
	return next.Clone(), nil
}

// AddSymptom records evidence gathered outside the guided question flow,
// such as a search pick or an extracted mention. It does not count as an
// answered question.
func (i *Interview) AddSymptom(ctx context.Context, conceptID string, state EvidenceState) (*PatientCase, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, err := i.activeCase()
	if err != nil {
		return nil, err
	}
	if _, err := CreateEvidence(conceptID, state, SourcePredefined, false); err != nil {
		return nil, err
	}

	next := c.Clone()
	if len(next.Evidence) == 0 {
		e, _ := CreateEvidence(conceptID, state, SourceInitial, true)
		next.Evidence = append(next.Evidence, e)
	} else {
		next.Evidence = ensureInitial(UpsertEvidence(next.Evidence, conceptID, state))
	}

	if err := i.advance(ctx, next); err != nil {
		i.logger.Warn().Err(err).Str("case_id", c.ID).Str("concept_id", conceptID).Msg("symptom not applied")
		return nil, err
	}
	i.c = next
	return next.Clone(), nil
}

// RequestTriage classifies the case as it stands. Repeated calls replace the
// previous classification.
func (i *Interview) RequestTriage(ctx context.Context) (*TriageResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.c == nil {
		return nil, ErrNotStarted
	}
	if i.c.Status == StatusAbandoned {
		return nil, validationErr("status", "interview was abandoned")
	}
	if len(i.c.Evidence) == 0 {
		return nil, &InvalidCaseError{Reason: "triage requires at least one evidence item"}
	}

	next := i.c.Clone()
	tr, err := i.reasoner.ClassifyTriage(ctx, next)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next.Triage = tr
	next.LastUpdatedAt = i.now()
	i.c = next

	i.logger.Info().Str("case_id", next.ID).Str("level", string(tr.Level)).Msg("triage classified")
	return next.Clone().Triage, nil
}

// Complete ends the interview early. Evidence and conditions are kept; the
// outstanding question, if any, is withdrawn.
func (i *Interview) Complete() (*PatientCase, error) {
	c, _, err := i.complete()
	return c, err
}

// complete also reports whether this call moved the case out of active.
func (i *Interview) complete() (*PatientCase, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.c == nil {
		return nil, false, ErrNotStarted
	}
	switch i.c.Status {
	case StatusAbandoned:
		return nil, false, validationErr("status", "interview was abandoned")
	case StatusCompleted:
		return i.c.Clone(), false, nil
	}
	i.c.Status = StatusCompleted
	i.c.CurrentQuestion = nil
	i.c.LastUpdatedAt = i.now()
	i.logger.Info().Str("case_id", i.c.ID).Int("questions_asked", i.c.QuestionsAsked).Msg("interview completed")
	return i.c.Clone(), true, nil
}

// Abandon marks the case abandoned. No further reasoning queries are allowed.
func (i *Interview) Abandon() (*PatientCase, error) {
	c, _, err := i.abandon()
	return c, err
}

func (i *Interview) abandon() (*PatientCase, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.c == nil {
		return nil, false, ErrNotStarted
	}
	switch i.c.Status {
	case StatusCompleted:
		return nil, false, validationErr("status", "interview already completed")
	case StatusAbandoned:
		return i.c.Clone(), false, nil
	}
	i.c.Status = StatusAbandoned
	i.c.CurrentQuestion = nil
	i.c.LastUpdatedAt = i.now()
	i.logger.Info().Str("case_id", i.c.ID).Msg("interview abandoned")
	return i.c.Clone(), true, nil
}

// Reset discards the case. Start must be called again afterwards.
func (i *Interview) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.c = nil
}

// Case returns a snapshot of the case, or nil before Start.
func (i *Interview) Case() *PatientCase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.c.Clone()
}

// Progress returns answered questions as a percentage of the question budget.
func (i *Interview) Progress() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return progressOf(i.c, i.limits)
}

func progressOf(c *PatientCase, limits Limits) int {
	if c == nil || limits.MaxQuestions <= 0 {
		return 0
	}
	if c.Status == StatusCompleted {
		return 100
	}
	p := c.QuestionsAsked * 100 / limits.MaxQuestions
	if p > 100 {
		p = 100
	}
	return p
}

func (i *Interview) activeCase() (*PatientCase, error) {
	if i.c == nil {
		return nil, ErrNotStarted
	}
	if i.c.Status != StatusActive {
		return nil, validationErr("status", "interview is %s", i.c.Status)
	}
	return i.c, nil
}

func (i *Interview) step(ctx context.Context, c *PatientCase) (*StepResult, error) {
	if !HasInitialEvidence(c.Evidence) {
		return nil, &InvalidCaseError{Reason: "no evidence is marked initial"}
	}
	res, err := i.reasoner.NextStep(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// advance queries the reasoner for next and applies the result to it,
// completing and triaging the case when the reasoner says to stop.
func (i *Interview) advance(ctx context.Context, next *PatientCase) error {
	res, err := i.step(ctx, next)
	if err != nil {
		return err
	}
	applyStep(next, res)

	if res.ShouldStop {
		next.Status = StatusCompleted
		if next.Triage == nil {
			tr, err := i.reasoner.ClassifyTriage(ctx, next)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			next.Triage = tr
		}
		i.logger.Info().
			Str("case_id", next.ID).
			Int("questions_asked", next.QuestionsAsked).
			Int("present", next.PresentCount()).
			Str("level", string(next.Triage.Level)).
			Msg("interview stopped")
	} else {
		i.logger.Debug().
			Str("case_id", next.ID).
			Int("questions_asked", next.QuestionsAsked).
			Int("conditions", len(next.Conditions)).
			Msg("interview step")
	}
	return nil
}

func applyStep(c *PatientCase, res *StepResult) {
	c.Conditions = res.Conditions
	if c.Conditions == nil {
		c.Conditions = []ScoredCondition{}
	}
	c.ShouldStop = res.ShouldStop
	c.CurrentQuestion = res.Question
	if res.ShouldStop {
		c.CurrentQuestion = nil
	}
}

func validateAnswers(q *Question, answers []Answer) error {
	if len(answers) == 0 {
		return validationErr("answers", "at least one answer is required")
	}
	seen := make(map[string]bool, len(answers))
	present := 0
	for _, a := range answers {
		if !a.State.Valid() {
			return validationErr("state", "must be one of present, absent, unknown (got %q)", a.State)
		}
		if !q.HasConcept(a.ConceptID) {
			return validationErr("concept_id", "%q is not part of the current question", a.ConceptID)
		}
		if seen[a.ConceptID] {
			return validationErr("concept_id", "%q answered more than once", a.ConceptID)
		}
		seen[a.ConceptID] = true
		if a.State == StatePresent {
			present++
		}
	}
	switch q.Kind {
	case QuestionSingle:
		if len(answers) != 1 {
			return validationErr("answers", "a single question takes exactly one answer")
		}
	case QuestionGroupSingle:
		if present > 1 {
			return validationErr("answers", "only one option may be present for this question")
		}
	}
	return nil
}

package interview

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/mention"
)

// Session binds one Interview to the patient who started it.
type Session struct {
	ID        string
	OwnerID   string
	Interview *Interview
	CreatedAt time.Time
}

type SessionStore interface {
	Save(s *Session)
	// Touch refreshes the expiry of a stored session. It reports false and
	// stores nothing when the session is no longer present.
	Touch(s *Session) bool
	Get(id string) (*Session, bool)
	Delete(id string)
}

// Event types published on interview lifecycle changes.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventAbandoned = "abandoned"
	EventTriaged   = "triaged"
)

// Event carries ids and outcomes only, never free text.
type Event struct {
	Type           string      `json:"type"`
	CaseID         string      `json:"case_id"`
	OwnerID        string      `json:"owner_id"`
	Status         Status      `json:"status"`
	QuestionsAsked int         `json:"questions_asked"`
	TriageLevel    TriageLevel `json:"triage_level,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// StartRequest opens a case. Text, when present, is run through the mention
// extractor and the recognised concepts follow the explicit ones.
type StartRequest struct {
	Age      int      `json:"age" validate:"gte=0,lte=120"`
	Sex      Sex      `json:"sex" validate:"required,oneof=male female"`
	Evidence []string `json:"evidence" validate:"dive,required"`
	Text     string   `json:"text" validate:"max=4000"`
}

type StartResult struct {
	Case               *PatientCase      `json:"case"`
	Progress           int               `json:"progress"`
	Mentions           []mention.Mention `json:"mentions,omitempty"`
	NeedsClarification bool              `json:"needs_clarification"`
}

// Service keeps one Interview per case and enforces case ownership. Each
// Interview serialises its own operations.
type Service struct {
	store     SessionStore
	reasoner  Reasoner
	extractor mention.Extractor
	limits    Limits
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(store SessionStore, reasoner Reasoner, extractor mention.Extractor, limits Limits, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		reasoner:  reasoner,
		extractor: extractor,
		limits:    limits,
		publisher: NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetPublisher attaches a lifecycle event publisher.
func (s *Service) SetPublisher(p Publisher) {
	if p == nil {
		p = NopPublisher{}
	}
	s.publisher = p
}

func (s *Service) Limits() Limits {
	return s.limits
}

func (s *Service) Start(ctx context.Context, ownerID string, req StartRequest) (*StartResult, error) {
	if err := ValidateDemographics(req.Age, req.Sex); err != nil {
		return nil, err
	}

	ids := append([]string(nil), req.Evidence...)
	res := &StartResult{}
	if req.Text != "" {
		extracted, err := s.Extract(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		res.Mentions = extracted.Mentions
		ids = append(ids, extracted.ConceptIDs()...)
		res.NeedsClarification = !extracted.IsObvious && len(req.Evidence) == 0
	}

	iv := New(s.reasoner, s.limits, WithLogger(s.logger))
	c, err := iv.Start(ctx, req.Age, req.Sex, ids)
	if err != nil {
		return nil, err
	}
	s.store.Save(&Session{ID: c.ID, OwnerID: ownerID, Interview: iv, CreatedAt: s.now()})
	s.publish(ctx, EventStarted, ownerID, c)

	res.Case = c
	res.Progress = iv.Progress()
	return res, nil
}

// Get returns a snapshot of the case and its progress percentage.
func (s *Service) Get(_ context.Context, ownerID, caseID string) (*PatientCase, int, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, 0, err
	}
	c := sess.Interview.Case()
	if c == nil {
		return nil, 0, ErrCaseNotFound
	}
	return c, progressOf(c, s.limits), nil
}

func (s *Service) Answer(ctx context.Context, ownerID, caseID string, answers []Answer) (*PatientCase, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, err
	}
	c, err := sess.Interview.AnswerGroup(ctx, answers)
	if err != nil {
		return nil, err
	}
	s.touch(sess)
	s.publishIfCompleted(ctx, ownerID, c)
	return c, nil
}

func (s *Service) AddSymptom(ctx context.Context, ownerID, caseID, conceptID string, state EvidenceState) (*PatientCase, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, err
	}
	c, err := sess.Interview.AddSymptom(ctx, conceptID, state)
	if err != nil {
		return nil, err
	}
	s.touch(sess)
	s.publishIfCompleted(ctx, ownerID, c)
	return c, nil
}

func (s *Service) RequestTriage(ctx context.Context, ownerID, caseID string) (*TriageResult, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, err
	}
	tr, err := sess.Interview.RequestTriage(ctx)
	if err != nil {
		return nil, err
	}
	s.touch(sess)
	if c := sess.Interview.Case(); c != nil {
		s.publish(ctx, EventTriaged, ownerID, c)
	}
	return tr, nil
}

func (s *Service) Complete(ctx context.Context, ownerID, caseID string) (*PatientCase, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, err
	}
	c, changed, err := sess.Interview.complete()
	if err != nil {
		return nil, err
	}
	s.touch(sess)
	if changed {
		s.publish(ctx, EventCompleted, ownerID, c)
	}
	return c, nil
}

func (s *Service) Abandon(ctx context.Context, ownerID, caseID string) (*PatientCase, error) {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return nil, err
	}
	c, changed, err := sess.Interview.abandon()
	if err != nil {
		return nil, err
	}
	s.touch(sess)
	if changed {
		s.publish(ctx, EventAbandoned, ownerID, c)
	}
	return c, nil
}

// Reset discards the case. A new one has to be started afterwards. The
// session leaves the store before its interview is cleared, so concurrent
// callers either miss it or see ErrNotStarted.
func (s *Service) Reset(_ context.Context, ownerID, caseID string) error {
	sess, err := s.session(ownerID, caseID)
	if err != nil {
		return err
	}
	s.store.Delete(caseID)
	sess.Interview.Reset()
	s.logger.Info().Str("case_id", caseID).Msg("interview reset")
	return nil
}

func (s *Service) Search(ctx context.Context, phrase string) ([]ConceptMatch, error) {
	if phrase == "" {
		return nil, validationErr("phrase", "is required")
	}
	return s.reasoner.Search(ctx, phrase)
}

func (s *Service) Extract(ctx context.Context, text string) (mention.Result, error) {
	if s.extractor == nil {
		return mention.Result{Mentions: []mention.Mention{}}, nil
	}
	return s.extractor.Extract(ctx, text)
}

func (s *Service) session(ownerID, caseID string) (*Session, error) {
	sess, ok := s.store.Get(caseID)
	if !ok {
		return nil, ErrCaseNotFound
	}
	if sess.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// touch restarts the session's expiry. A session removed by a concurrent
// reset stays removed.
func (s *Service) touch(sess *Session) {
	if !s.store.Touch(sess) {
		s.logger.Debug().Str("case_id", sess.ID).Msg("session gone before touch")
	}
}

func (s *Service) publishIfCompleted(ctx context.Context, ownerID string, c *PatientCase) {
	if c.Status != StatusCompleted {
		return
	}
	s.publish(ctx, EventCompleted, ownerID, c)
	if c.Triage != nil {
		s.publish(ctx, EventTriaged, ownerID, c)
	}
}

func (s *Service) publish(ctx context.Context, typ, ownerID string, c *PatientCase) {
	e := Event{
		Type:           typ,
		CaseID:         c.ID,
		OwnerID:        ownerID,
		Status:         c.Status,
		QuestionsAsked: c.QuestionsAsked,
		OccurredAt:     s.now(),
	}
	if c.Triage != nil {
		e.TriageLevel = c.Triage.Level
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("case_id", c.ID).Str("event", typ).Msg("failed to publish interview event")
	}
}

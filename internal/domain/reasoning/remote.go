package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
)

// RemoteConfig configures the hosted diagnostic API adapter.
type RemoteConfig struct {
	BaseURL    string
	AppID      string
	AppKey     string
	Timeout    time.Duration
	SessionTTL time.Duration
}

// Remote forwards reasoning calls to a hosted diagnostic API. It holds no
// case state other than a correlation id per case, sent as Interview-Id.
type Remote struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
	sessions   *cache.Cache
	logger     zerolog.Logger
}

var _ interview.Reasoner = (*Remote)(nil)

type RemoteOption func(*Remote)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = c }
}

func NewRemote(cfg RemoteConfig, logger zerolog.Logger, opts ...RemoteOption) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	r := &Remote{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		httpClient: &http.Client{Timeout: timeout},
		sessions:   cache.New(ttl, 10*time.Minute),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type wireEvidence struct {
	ID       string `json:"id"`
	ChoiceID string `json:"choice_id"`
	Source   string `json:"source,omitempty"`
	Initial  bool   `json:"initial,omitempty"`
}

type wireCase struct {
	Sex      string         `json:"sex"`
	Age      wireAge        `json:"age"`
	Evidence []wireEvidence `json:"evidence"`
}

type wireAge struct {
	Value int `json:"value"`
}

type wireChoice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type wireQuestion struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Items []struct {
		ID      string       `json:"id"`
		Name    string       `json:"name"`
		Choices []wireChoice `json:"choices"`
	} `json:"items"`
}

type wireCondition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CommonName  string  `json:"common_name"`
	Probability float64 `json:"probability"`
}

type diagnosisResponse struct {
	Question   *wireQuestion   `json:"question"`
	Conditions []wireCondition `json:"conditions"`
	ShouldStop bool            `json:"should_stop"`
}

type triageResponse struct {
	TriageLevel string `json:"triage_level"`
	Level       string `json:"level"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Serious     []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		CommonName  string `json:"common_name"`
		IsEmergency bool   `json:"is_emergency"`
	} `json:"serious"`
}

type searchHit struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Probe checks that the backend answers and accepts the configured
// credentials.
func (r *Remote) Probe(ctx context.Context) error {
	return r.do(ctx, "info", http.MethodGet, "/info", "", nil, nil)
}

func (r *Remote) NextStep(ctx context.Context, c *interview.PatientCase) (*interview.StepResult, error) {
	if c == nil {
		return nil, &interview.InvalidCaseError{Reason: "case is required"}
	}
	if !interview.HasInitialEvidence(c.Evidence) {
		return nil, &interview.InvalidCaseError{Reason: "no evidence is marked initial"}
	}

	var resp diagnosisResponse
	if err := r.do(ctx, "diagnosis", http.MethodPost, "/diagnosis", r.interviewID(c.ID), toWire(c), &resp); err != nil {
		return nil, err
	}

	res := &interview.StepResult{ShouldStop: resp.ShouldStop, Conditions: []interview.ScoredCondition{}}
	for _, wc := range resp.Conditions {
		res.Conditions = append(res.Conditions, interview.ScoredCondition{
			ID:          wc.ID,
			Name:        wc.Name,
			CommonName:  wc.CommonName,
			Probability: wc.Probability,
		})
	}
	if resp.Question != nil {
		q, err := fromWireQuestion(resp.Question)
		if err != nil {
			return nil, &interview.TransportError{Op: "diagnosis", Err: err}
		}
		res.Question = q
	}
	return res, nil
}

func (r *Remote) ClassifyTriage(ctx context.Context, c *interview.PatientCase) (*interview.TriageResult, error) {
	if c == nil || len(c.Evidence) == 0 {
		return nil, &interview.InvalidCaseError{Reason: "triage requires at least one evidence item"}
	}

	var resp triageResponse
	if err := r.do(ctx, "triage", http.MethodPost, "/triage", r.interviewID(c.ID), toWire(c), &resp); err != nil {
		return nil, err
	}

	raw := resp.TriageLevel
	if raw == "" {
		raw = resp.Level
	}
	level, ok := parseTriageLevel(raw)
	if !ok {
		return nil, &interview.TransportError{Op: "triage", Err: fmt.Errorf("unknown triage level %q", raw)}
	}

	tr := triageText[level]
	tr.Level = level
	if resp.Label != "" {
		tr.Label = resp.Label
	}
	if resp.Description != "" {
		tr.Description = resp.Description
	}

	scored := make(map[string]interview.ScoredCondition, len(c.Conditions))
	for _, sc := range c.Conditions {
		scored[sc.ID] = sc
	}
	tr.SeriousConditions = []interview.ScoredCondition{}
	for _, s := range resp.Serious {
		sc, ok := scored[s.ID]
		if !ok {
			sc = interview.ScoredCondition{ID: s.ID, Name: s.Name, CommonName: s.CommonName}
		}
		tr.SeriousConditions = append(tr.SeriousConditions, sc)
	}
	return &tr, nil
}

func (r *Remote) Search(ctx context.Context, phrase string) ([]interview.ConceptMatch, error) {
	q := url.Values{}
	q.Set("phrase", phrase)
	q.Set("max_results", strconv.Itoa(defaultSearchN))

	var hits []searchHit
	if err := r.do(ctx, "search", http.MethodGet, "/search?"+q.Encode(), "", nil, &hits); err != nil {
		return nil, err
	}
	out := make([]interview.ConceptMatch, len(hits))
	for i, h := range hits {
		out[i] = interview.ConceptMatch{ConceptID: h.ID, Label: h.Label, Kind: h.Type}
	}
	return out, nil
}

// interviewID returns the correlation id for a case, creating one the first
// time the case is seen. Ids are never shared between cases.
func (r *Remote) interviewID(caseID string) string {
	if v, ok := r.sessions.Get(caseID); ok {
		return v.(string)
	}
	id := uuid.NewString()
	if err := r.sessions.Add(caseID, id, cache.DefaultExpiration); err != nil {
		if v, ok := r.sessions.Get(caseID); ok {
			return v.(string)
		}
	}
	return id
}

func (r *Remote) do(ctx context.Context, op, method, path, interviewID string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return &interview.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("App-Id", r.appID)
	req.Header.Set("App-Key", r.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if interviewID != "" {
		req.Header.Set("Interview-Id", interviewID)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logger.Warn().Err(err).Str("op", op).Msg("reasoner request failed")
		return &interview.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	r.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("reasoner call")

	if resp.StatusCode == http.StatusTooManyRequests {
		return &interview.RateLimitError{Op: op, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &interview.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &interview.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func toWire(c *interview.PatientCase) wireCase {
	wc := wireCase{
		Sex:      string(c.Demographics.Sex),
		Age:      wireAge{Value: c.Demographics.Age},
		Evidence: make([]wireEvidence, len(c.Evidence)),
	}
	for i, e := range c.Evidence {
		we := wireEvidence{ID: e.ConceptID, ChoiceID: string(e.State), Initial: e.IsInitial}
		switch e.Source {
		case interview.SourceInitial:
			we.Source = "initial"
		case interview.SourceSuggested:
			we.Source = "suggest"
		case interview.SourcePredefined:
			we.Source = "predefined"
		}
		wc.Evidence[i] = we
	}
	return wc
}

func fromWireQuestion(wq *wireQuestion) (*interview.Question, error) {
	var kind interview.QuestionKind
	switch wq.Type {
	case "single":
		kind = interview.QuestionSingle
	case "group_single":
		kind = interview.QuestionGroupSingle
	case "group_multiple":
		kind = interview.QuestionGroupMultiple
	default:
		return nil, fmt.Errorf("unknown question type %q", wq.Type)
	}
	if len(wq.Items) == 0 {
		return nil, errors.New("question has no items")
	}
	q := &interview.Question{Kind: kind, Prompt: wq.Text, Items: make([]interview.QuestionItem, len(wq.Items))}
	for i, it := range wq.Items {
		item := interview.QuestionItem{ConceptID: it.ID, Name: it.Name, Choices: make([]interview.Choice, len(it.Choices))}
		for j, ch := range it.Choices {
			item.Choices[j] = interview.Choice{ID: ch.ID, Label: ch.Label}
		}
		q.Items[i] = item
	}
	return q, nil
}

func parseTriageLevel(s string) (interview.TriageLevel, bool) {
	switch s {
	case "emergency", "emergency_ambulance":
		return interview.TriageEmergency, true
	case "consultation", "consultation_24":
		return interview.TriageConsultation, true
	case "self_care", "selfCare":
		return interview.TriageSelfCare, true
	}
	return "", false
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
)

type recordedRequest struct {
	method      string
	path        string
	query       string
	appID       string
	appKey      string
	interviewID string
	body        wireCase
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	header   map[string]string
	body     string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		method:      r.Method,
		path:        r.URL.Path,
		query:       r.URL.RawQuery,
		appID:       r.Header.Get("App-Id"),
		appKey:      r.Header.Get("App-Key"),
		interviewID: r.Header.Get("Interview-Id"),
	}
	if r.Method == http.MethodPost {
		json.NewDecoder(r.Body).Decode(&rec.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status, header, body := f.status, f.header, f.body
	f.mu.Unlock()

	for k, v := range header {
		w.Header().Set(k, v)
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (f *fakeBackend) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newRemote(t *testing.T, backend *fakeBackend) *Remote {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return NewRemote(RemoteConfig{BaseURL: srv.URL + "/", AppID: "app", AppKey: "secret", Timeout: 2 * time.Second}, zerolog.Nop())
}

const diagnosisBody = `{
  "question": {
    "type": "group_single",
    "text": "How long have you had the headache?",
    "items": [
      {"id": "s_headache_short", "name": "Less than a day", "choices": [{"id": "present", "label": "Yes"}, {"id": "absent", "label": "No"}]},
      {"id": "s_headache_long", "name": "More than a day", "choices": [{"id": "present", "label": "Yes"}, {"id": "absent", "label": "No"}]}
    ]
  },
  "conditions": [
    {"id": "c_87", "name": "Tension-type headaches", "common_name": "Tension headache", "probability": 0.51},
    {"id": "c_55", "name": "Migraine", "probability": 0.23}
  ],
  "should_stop": false
}`

func TestRemote_NextStep(t *testing.T) {
	backend := &fakeBackend{body: diagnosisBody}
	r := newRemote(t, backend)

	c := newCase(present("s_headache", true), absent("s_fever"))
	res, err := r.NextStep(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := backend.last()
	if req.method != http.MethodPost || req.path != "/diagnosis" {
		t.Errorf("unexpected request %s %s", req.method, req.path)
	}
	if req.appID != "app" || req.appKey != "secret" || req.interviewID == "" {
		t.Errorf("missing auth or correlation headers: %+v", req)
	}
	if req.body.Sex != "male" || req.body.Age.Value != 30 || len(req.body.Evidence) != 2 {
		t.Errorf("unexpected body: %+v", req.body)
	}
	if e := req.body.Evidence[0]; e.ID != "s_headache" || e.ChoiceID != "present" || !e.Initial || e.Source != "initial" {
		t.Errorf("unexpected first evidence: %+v", e)
	}

	if res.ShouldStop {
		t.Error("expected should_stop false")
	}
	if res.Question == nil || res.Question.Kind != interview.QuestionGroupSingle || len(res.Question.Items) != 2 {
		t.Fatalf("unexpected question: %+v", res.Question)
	}
	if res.Question.Items[1].ConceptID != "s_headache_long" || len(res.Question.Items[1].Choices) != 2 {
		t.Errorf("unexpected item: %+v", res.Question.Items[1])
	}
	if len(res.Conditions) != 2 || res.Conditions[0].CommonName != "Tension headache" || res.Conditions[1].Probability != 0.23 {
		t.Errorf("unexpected conditions: %+v", res.Conditions)
	}
}

func TestRemote_CorrelationIDPerCase(t *testing.T) {
	backend := &fakeBackend{body: `{"question":null,"conditions":[],"should_stop":true}`}
	r := newRemote(t, backend)

	a := newCase(present("s_headache", true))
	b := newCase(present("s_headache", true))
	b.ID = "case-2"

	r.NextStep(context.Background(), a)
	first := backend.last().interviewID
	r.NextStep(context.Background(), a)
	again := backend.last().interviewID
	r.NextStep(context.Background(), b)
	other := backend.last().interviewID

	if first == "" || first != again {
		t.Errorf("expected stable id for one case, got %q and %q", first, again)
	}
	if other == first {
		t.Error("expected a different id for another case")
	}
}

func TestRemote_NextStep_RequiresInitialEvidence(t *testing.T) {
	backend := &fakeBackend{body: diagnosisBody}
	r := newRemote(t, backend)

	_, err := r.NextStep(context.Background(), newCase(present("s_headache", false)))
	var ice *interview.InvalidCaseError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InvalidCaseError, got %v", err)
	}
	if backend.count() != 0 {
		t.Error("expected no backend call")
	}
}

func TestRemote_Errors(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		check   func(t *testing.T, err error)
	}{
		{
			name:    "rate limited",
			backend: &fakeBackend{status: http.StatusTooManyRequests, header: map[string]string{"Retry-After": "7"}},
			check: func(t *testing.T, err error) {
				var rle *interview.RateLimitError
				if !errors.As(err, &rle) {
					t.Fatalf("expected RateLimitError, got %v", err)
				}
				if rle.RetryAfter != 7*time.Second {
					t.Errorf("expected 7s, got %s", rle.RetryAfter)
				}
			},
		},
		{
			name:    "server error",
			backend: &fakeBackend{status: http.StatusInternalServerError, body: "upstream exploded"},
			check: func(t *testing.T, err error) {
				var te *interview.TransportError
				if !errors.As(err, &te) {
					t.Fatalf("expected TransportError, got %v", err)
				}
				if te.StatusCode != http.StatusInternalServerError || te.Op != "diagnosis" {
					t.Errorf("unexpected transport error: %+v", te)
				}
			},
		},
		{
			name:    "malformed body",
			backend: &fakeBackend{body: `{"conditions": [`},
			check: func(t *testing.T, err error) {
				var te *interview.TransportError
				if !errors.As(err, &te) {
					t.Fatalf("expected TransportError, got %v", err)
				}
			},
		},
		{
			name:    "unknown question type",
			backend: &fakeBackend{body: `{"question":{"type":"slider","text":"?","items":[{"id":"x","name":"x"}]},"conditions":[],"should_stop":false}`},
			check: func(t *testing.T, err error) {
				var te *interview.TransportError
				if !errors.As(err, &te) {
					t.Fatalf("expected TransportError, got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRemote(t, tt.backend)
			_, err := r.NextStep(context.Background(), newCase(present("s_headache", true)))
			if !interview.IsRetryable(err) {
				t.Errorf("expected retryable error, got %v", err)
			}
			tt.check(t, err)
		})
	}
}

func TestRemote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRemote(RemoteConfig{BaseURL: url, Timeout: time.Second}, zerolog.Nop())
	_, err := r.NextStep(context.Background(), newCase(present("s_headache", true)))
	var te *interview.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if err := r.Probe(context.Background()); err == nil {
		t.Error("expected probe to fail")
	}
}

func TestRemote_ClassifyTriage(t *testing.T) {
	tests := []struct {
		body  string
		level interview.TriageLevel
	}{
		{`{"triage_level":"emergency_ambulance","serious":[{"id":"c_55","name":"Meningitis","is_emergency":true}]}`, interview.TriageEmergency},
		{`{"triage_level":"consultation_24","description":"See a doctor today"}`, interview.TriageConsultation},
		{`{"level":"self_care","label":"Rest at home"}`, interview.TriageSelfCare},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			r := newRemote(t, &fakeBackend{body: tt.body})
			c := newCase(present("s_headache", true))
			c.Conditions = []interview.ScoredCondition{{ID: "c_55", Name: "Meningitis", Probability: 0.4}}

			tr, err := r.ClassifyTriage(context.Background(), c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Level != tt.level {
				t.Errorf("expected %s, got %s", tt.level, tr.Level)
			}
			if tr.Label == "" || tr.Description == "" {
				t.Errorf("expected label and description, got %+v", tr)
			}
			if tt.level == interview.TriageEmergency {
				if len(tr.SeriousConditions) != 1 || tr.SeriousConditions[0].Probability != 0.4 {
					t.Errorf("expected serious condition with case probability, got %+v", tr.SeriousConditions)
				}
			}
		})
	}
}

func TestRemote_ClassifyTriage_UnknownLevel(t *testing.T) {
	r := newRemote(t, &fakeBackend{body: `{"triage_level":"maybe"}`})
	_, err := r.ClassifyTriage(context.Background(), newCase(present("s_headache", true)))
	var te *interview.TransportError
	if !errors.As(err, &te) {
		t.Errorf("expected TransportError, got %v", err)
	}
}

func TestRemote_Search(t *testing.T) {
	backend := &fakeBackend{body: `[{"id":"s_21","label":"Headache","type":"symptom"}]`}
	r := newRemote(t, backend)

	matches, err := r.Search(context.Background(), "head ache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := backend.last()
	if req.method != http.MethodGet || req.path != "/search" || req.query != "max_results=10&phrase=head+ache" {
		t.Errorf("unexpected request %s %s?%s", req.method, req.path, req.query)
	}
	if req.interviewID != "" {
		t.Error("search should not carry an interview id")
	}
	if len(matches) != 1 || matches[0].ConceptID != "s_21" || matches[0].Kind != "symptom" {
		t.Errorf("unexpected matches: %+v", matches)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	if got := parseRetryAfter("", now); got != 0 {
		t.Errorf("expected 0, got %s", got)
	}
	if got := parseRetryAfter("30", now); got != 30*time.Second {
		t.Errorf("expected 30s, got %s", got)
	}
	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	if got := parseRetryAfter(date, now); got != 90*time.Second {
		t.Errorf("expected 90s, got %s", got)
	}
	if got := parseRetryAfter("soon", now); got != 0 {
		t.Errorf("expected 0 for garbage, got %s", got)
	}
}

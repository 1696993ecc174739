package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/config"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/mention"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/reasoning"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/middleware"
)

func mentionResult(t *testing.T, text string) mention.Result {
	t.Helper()
	return mention.Extract(text, knowledge.Builtin())
}

func testApp(env string) *app {
	return &app{
		cfg: &config.Config{
			Env:                   env,
			CORSOrigins:           []string{"http://localhost:3000"},
			BodyLimit:             "64K",
			RateLimitRPS:          20,
			RateLimitBurst:        40,
			RequestTimeout:        5 * time.Second,
			AuthJWTSecret:         "test-secret",
			InterviewMaxQuestions: 5,
			InterviewMaxPresent:   4,
			InterviewTTL:          time.Hour,
		},
		logger: zerolog.Nop(),
	}
}

func testServer(env string) http.Handler {
	a := testApp(env)
	table := knowledge.Builtin()
	svc := interview.NewService(
		interview.NewMemoryStore(a.cfg.InterviewTTL),
		reasoning.NewLocal(table, a.limits()),
		mention.NewLocal(table),
		a.limits(),
		a.logger,
	)
	return newServer(a, svc)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthIsPublic(t *testing.T) {
	rec := serve(testServer("production"), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_ProductionRequiresToken(t *testing.T) {
	rec := serve(testServer("production"), http.MethodPost, "/api/v1/interviews", `{"age":30,"sex":"male"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_DevelopmentStartsInterview(t *testing.T) {
	rec := serve(testServer("development"), http.MethodPost, "/api/v1/interviews",
		`{"age":30,"sex":"male","evidence":["s_headache"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"s_photophobia"`) {
		t.Errorf("expected a follow-up question in %s", rec.Body.String())
	}
}

func TestServer_NoDatabaseHealthWithoutPool(t *testing.T) {
	rec := serve(testServer("development"), http.MethodGet, "/health/db", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a pool, got %d", rec.Code)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	big := `{"age":30,"sex":"male","text":"` + strings.Repeat("a", 70*1024) + `"}`
	rec := serve(testServer("development"), http.MethodPost, "/api/v1/interviews", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

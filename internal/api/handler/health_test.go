package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return nil }}
}

func failingCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return errors.New("connection refused") }}
}

func serveHealth(t *testing.T, fn echo.HandlerFunc) (int, healthResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec.Code, resp
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(zerolog.Nop(), []HealthCheck{failingCheck("database")}, nil)

	code, resp := serveHealth(t, h.Liveness)
	if code != http.StatusOK || resp.Status != statusOK {
		t.Fatalf("liveness must not depend on checks, got %d %+v", code, resp)
	}
}

func TestHealthHandler_ReadinessOK(t *testing.T) {
	h := NewHealthHandler(zerolog.Nop(), []HealthCheck{okCheck("database"), okCheck("redis")}, []HealthCheck{failingCheck("storage")})

	code, resp := serveHealth(t, h.Readiness)
	if code != http.StatusOK || resp.Status != statusOK {
		t.Fatalf("expected ok, got %d %+v", code, resp)
	}
	if _, ran := resp.Dependencies["storage"]; ran {
		t.Fatalf("readiness must not run extended checks")
	}
	if resp.Dependencies["database"].Status != statusOK {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler(zerolog.Nop(), []HealthCheck{okCheck("database")}, []HealthCheck{failingCheck("storage")})

	code, resp := serveHealth(t, h.Health)
	if code != http.StatusServiceUnavailable || resp.Status != statusDegraded {
		t.Fatalf("expected 503 degraded, got %d %+v", code, resp)
	}
	if storage := resp.Dependencies["storage"]; storage.Status != statusUnhealthy {
		t.Fatalf("unexpected storage status: %+v", storage)
	}
	if resp.Dependencies["database"].Status != statusOK {
		t.Fatalf("unexpected database status: %+v", resp.Dependencies["database"])
	}
}

func TestHealthHandler_FailureDetailIsLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	leaky := HealthCheck{Name: "database", Check: func(context.Context) error {
		return errors.New("dial tcp db.internal:5432: connection refused")
	}}
	h := NewHealthHandler(zerolog.New(&logs), []HealthCheck{leaky}, nil)

	e := echo.New()
	rec := httptest.NewRecorder()
	if err := h.Readiness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health/readiness", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db.internal") {
		t.Fatalf("response leaks dependency detail: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "db.internal:5432") || !strings.Contains(logs.String(), `"dependency":"database"`) {
		t.Fatalf("expected failure detail in logs, got %s", logs.String())
	}
}

func TestHeapCheck(t *testing.T) {
	if err := HeapCheck(1 << 40).Check(context.Background()); err != nil {
		t.Fatalf("expected generous limit to pass, got %v", err)
	}
	if err := HeapCheck(1).Check(context.Background()); err == nil {
		t.Fatalf("expected one-byte limit to fail")
	}
}

func TestDiskCheck(t *testing.T) {
	if err := DiskCheck(t.TempDir(), 1.01).Check(context.Background()); err != nil {
		t.Fatalf("expected threshold above 100%% to pass, got %v", err)
	}
	if err := DiskCheck(t.TempDir(), -1).Check(context.Background()); err == nil {
		t.Fatalf("expected negative threshold to fail")
	}
}

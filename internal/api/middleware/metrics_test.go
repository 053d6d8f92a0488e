package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/api/v1/media", "/api/v1/media"},
		{"/api/v1/media/batch", "/api/v1/media/batch"},
		{"/api/v1/media/a1b2c3d4-e5f6-7890-abcd-ef1234567890", "/api/v1/media/{id}"},
		{"/api/v1/media/a1b2c3d4-e5f6-7890-abcd-ef1234567890/download", "/api/v1/media/{id}/download"},
		{"/unknown/path", "/unknown/path"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, хотели %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsResponseWriter_StatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newMetricsResponseWriter(rec)

	// Статус по умолчанию — 200, до явной записи заголовка
	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, хотели %d", rw.statusCode, http.StatusOK)
	}

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, хотели %d", rw.statusCode, http.StatusNotFound)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("записанный статус = %d, хотели %d", rec.Code, http.StatusNotFound)
	}
}

func TestMetricsMiddleware_PassThrough(t *testing.T) {
	called := false
	handler := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", nil)
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("обработчик не был вызван")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("статус = %d, хотели %d", rec.Code, http.StatusCreated)
	}
}

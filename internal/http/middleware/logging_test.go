package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("request id %q is not a uuid", seen)
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != id {
			t.Errorf("request id = %q, want %q", seen, id)
		}
	})

	t.Run("malformed incoming id is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen == "<script>" {
			t.Error("malformed request id was trusted")
		}
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"taken"}`))
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/v1/me", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["status"] != float64(http.StatusConflict) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusConflict)
	}
	if entry["path"] != "/v1/me" {
		t.Errorf("path = %v", entry["path"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("request_id missing from log line")
	}
}

func TestLogging_ImplicitStatusAndBytes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  float64
		wantBytes   float64
		wantFlusher bool
	}{
		{name: "body without WriteHeader", body: `{"status":"ok"}`, wantStatus: 200, wantBytes: 15, wantFlusher: true},
		{name: "nothing written", wantStatus: 200, wantBytes: 0, wantFlusher: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			var flushable bool
			handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, flushable = w.(http.Flusher)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
			}
			if entry["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %v", entry["status"], tt.wantStatus)
			}
			if entry["bytes"] != tt.wantBytes {
				t.Errorf("bytes = %v, want %v", entry["bytes"], tt.wantBytes)
			}
			if entry["level"] != "INFO" {
				t.Errorf("level = %v, want INFO", entry["level"])
			}
			if flushable != tt.wantFlusher {
				t.Errorf("handler sees http.Flusher = %v, want %v", flushable, tt.wantFlusher)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if !bytes.Contains(buf.Bytes(), []byte("kaboom")) {
		t.Errorf("panic value not logged: %s", buf.String())
	}
}

func TestTracing_PassesThroughStatus(t *testing.T) {
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

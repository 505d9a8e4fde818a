package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d denied", i+1)
		}
	}
	ok, wait := l.Allow("a")
	if ok {
		t.Fatal("third request allowed")
	}
	if wait != time.Minute {
		t.Errorf("wait = %v, want 1m", wait)
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Error("other key denied")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow("a"); !ok {
		t.Error("request after window denied")
	}
}

func TestLimiterCleanup(t *testing.T) {
	l := NewLimiter(1, time.Second)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Second)
	l.Allow("new")
	l.Cleanup()

	if _, ok := l.windows["old"]; ok {
		t.Error("expired window kept")
	}
	if _, ok := l.windows["new"]; !ok {
		t.Error("active window dropped")
	}
}

func TestThrottle(t *testing.T) {
	h := Throttle(NewLimiter(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	if got := RealIP(r); got != "10.0.0.5" {
		t.Errorf("RealIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "192.168.1.2, 10.0.0.1")
	if got := RealIP(r); got != "192.168.1.2" {
		t.Errorf("RealIP with XFF = %q", got)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("response request id = %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log line = %q", out)
	}
}

//go:build !integration

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecover(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	tests := []struct {
		name       string
		fallback   http.HandlerFunc
		handler    http.Handler
		wantStatus int
		wantBody   string
	}{
		{
			name:       "default fallback is a 500",
			handler:    panicking,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal error\n",
		},
		{
			name:       "webhook fallback acknowledges",
			fallback:   acknowledge,
			handler:    panicking,
			wantStatus: http.StatusOK,
			wantBody:   "OK",
		},
		{
			name:     "response already started is left alone",
			fallback: acknowledge,
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("late")
			}),
			wantStatus: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Recover(newTestLogger(), tt.fallback)(tt.handler)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", nil))
			if rr.Code != tt.wantStatus || rr.Body.String() != tt.wantBody {
				t.Fatalf("wanted %d %q, got %d %q", tt.wantStatus, tt.wantBody, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTraceIDReusesRequestID(t *testing.T) {
	h := TraceID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(traceHeader); got != "req-123" {
		t.Errorf("expected the inbound request id, got %q", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rr.Header().Get(traceHeader); len(got) != 36 {
		t.Errorf("expected a generated uuid, got %q", got)
	}
}

package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureRequestLog(t *testing.T, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	req = req.WithContext(ContextWithLogger(req.Context(), logger))
	WithRequestLog("api", h).ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestRequestLogCarriesRouteJobAndActor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/jobs/{id}/apply", func(w http.ResponseWriter, r *http.Request) {
		SetRequestActor(r.Context(), "user-7", "candidate")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"STATUS":201}`))
	})

	rec := captureRequestLog(t, mux, httptest.NewRequest(http.MethodPost, "/api/jobs/job-42/apply", nil))
	want := map[string]any{
		"msg":     "http_request",
		"route":   "POST /api/jobs/{id}/apply",
		"job_id":  "job-42",
		"user_id": "user-7",
		"role":    "candidate",
		"status":  float64(http.StatusCreated),
		"bytes":   float64(len(`{"STATUS":201}`)),
	}
	for key, v := range want {
		if rec[key] != v {
			t.Fatalf("%s = %v, want %v (record %v)", key, rec[key], v, rec)
		}
	}
}

func TestRequestLogAnonymousUnmatched(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/companies/{id}", func(http.ResponseWriter, *http.Request) {})

	rec := captureRequestLog(t, mux, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if rec["route"] != "unmatched" || rec["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected record: %v", rec)
	}
	for _, key := range []string{"user_id", "job_id"} {
		if _, ok := rec[key]; ok {
			t.Fatalf("%s should be absent: %v", key, rec)
		}
	}

	rec = captureRequestLog(t, mux, httptest.NewRequest(http.MethodGet, "/api/companies/c-1", nil))
	if _, ok := rec["job_id"]; ok {
		t.Fatalf("company routes carry no job id: %v", rec)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"jobboard/pkg/domain"
	"jobboard/pkg/storage"
	"jobboard/pkg/store"
	"jobboard/pkg/token"
	"jobboard/services/api/internal/app"
)

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
}

type response struct {
	Code    int
	Body    envelope
	Raw     json.RawMessage
	Cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	redis := miniredis.RunT(t)
	revoker := store.NewRedisTokenRevoker(redis.Addr(), "", time.Hour)
	t.Cleanup(func() { _ = revoker.Close() })
	tokens, err := token.New(token.Options{
		AccessSecret:  "server-access",
		RefreshSecret: "server-refresh",
		Revoker:       revoker,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	mem := store.NewMemoryStore()
	a, err := app.New(app.Config{
		Store:   mem,
		Tokens:  tokens,
		Views:   store.NewRedisViewDeduper(redis.Addr(), "", time.Hour),
		Objects: storage.NewMemoryStore("http://files.test"),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := New(Config{App: a, AllowedOrigins: []string{"http://localhost:5173"}})
	return &testServer{handler: srv.Router(), store: mem}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any, cookies ...*http.Cookie) response {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return decodeResponse(t, rec)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var raw struct {
		envelope
		Result json.RawMessage `json:"RESULT"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	out := response{Code: rec.Code, Body: raw.envelope, Raw: raw.Result}
	out.Cookies = rec.Result().Cookies()
	return out
}

func (ts *testServer) session(t *testing.T, name, email, userType string) (string, *http.Cookie) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
		"gender": "other", "address": "Somewhere", "userType": userType,
	})
	if resp.Code != http.StatusOK || resp.Body.Status != 1 {
		t.Fatalf("register %s: %d %+v", email, resp.Code, resp.Body)
	}
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Raw, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.AccessToken, refreshCookie(t, resp)
}

func refreshCookie(t *testing.T, resp response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no refresh cookie in response")
	return nil
}

func TestEnvelopeShape(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"RESULT", "MESSAGE", "STATUS", "IS_TOKEN_EXPIRE"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %s in %v", key, body)
		}
	}
	if body["STATUS"] != float64(1) || body["IS_TOKEN_EXPIRE"] != float64(0) {
		t.Fatalf("unexpected envelope %v", body)
	}

	resp := ts.do(t, http.MethodPost, "/api/user/login", "", `{"email":`)
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "Invalid JSON body" || resp.Body.Status != 0 {
		t.Fatalf("malformed JSON: %d %+v", resp.Code, resp.Body)
	}
	if resp.Raw != nil {
		t.Fatalf("failure must not carry RESULT: %s", resp.Raw)
	}
}

func TestRegisterSetsRefreshCookie(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.session(t, "Ann", "ann@example.com", "candidate")
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode || cookie.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
	if cookie.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("max-age = %d", cookie.MaxAge)
	}

	resp := ts.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Ann", "email": "ANN@example.com", "password": "secret123", "gender": "other", "address": "x",
	})
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "Email already registered. Please login." {
		t.Fatalf("duplicate register: %d %+v", resp.Code, resp.Body)
	}
}

func TestAuthMiddlewareMessages(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/user/profile", "", nil)
	if resp.Code != http.StatusUnauthorized || resp.Body.Message != "Unauthorized: Missing token" {
		t.Fatalf("missing token: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodGet, "/api/user/profile", "not-a-jwt", nil)
	if resp.Code != http.StatusUnauthorized || resp.Body.Message != "Unauthorized: Invalid or expired token" {
		t.Fatalf("invalid token: %d %+v", resp.Code, resp.Body)
	}

	access, refresh := ts.session(t, "Ben", "ben@example.com", "candidate")
	resp = ts.do(t, http.MethodGet, "/api/user/profile", access, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("profile: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodGet, "/api/user/profile", refresh.Value, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token must not authenticate: %d", resp.Code)
	}

	resp = ts.do(t, http.MethodGet, "/api/jobs/my", access, nil)
	if resp.Code != http.StatusForbidden || resp.Body.Message != "Only HR users can perform this action" {
		t.Fatalf("hr guard: %d %+v", resp.Code, resp.Body)
	}
}

func TestRefreshRotationAndLogout(t *testing.T) {
	ts := newTestServer(t)
	_, original := ts.session(t, "Cat", "cat@example.com", "hr")

	resp := ts.do(t, http.MethodPost, "/api/user/refresh-token", "", nil, original)
	if resp.Code != http.StatusOK {
		t.Fatalf("refresh: %d %+v", resp.Code, resp.Body)
	}
	rotated := refreshCookie(t, resp)
	if rotated.Value == original.Value {
		t.Fatal("expected rotated refresh cookie")
	}

	resp = ts.do(t, http.MethodPost, "/api/user/refresh-token", "", nil, original)
	if resp.Code != http.StatusUnauthorized || resp.Body.Message != "Invalid or expired refresh token" {
		t.Fatalf("reuse: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodPost, "/api/user/refresh-token", "", nil)
	if resp.Code != http.StatusUnauthorized || resp.Body.Message != "Refresh token is required" {
		t.Fatalf("missing cookie: %d %+v", resp.Code, resp.Body)
	}

	resp = ts.do(t, http.MethodPost, "/api/user/logout", "", nil, rotated)
	if resp.Code != http.StatusOK || resp.Body.Status != 1 {
		t.Fatalf("logout: %d %+v", resp.Code, resp.Body)
	}
	cleared := refreshCookie(t, resp)
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
	resp = ts.do(t, http.MethodPost, "/api/user/logout", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("second logout: %d", resp.Code)
	}
	resp = ts.do(t, http.MethodPost, "/api/user/refresh-token", "", nil, rotated)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("logged-out token must not refresh: %d", resp.Code)
	}
}

func TestForgotPasswordWithoutMailer(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/api/user/forgotpassword", "", map[string]string{"email": "ghost@example.com"})
	if resp.Code != http.StatusOK || resp.Body.Message != "If that email exists, a reset link has been sent." {
		t.Fatalf("unknown email: %d %+v", resp.Code, resp.Body)
	}
	ts.session(t, "Dan", "dan@example.com", "candidate")
	resp = ts.do(t, http.MethodPost, "/api/user/forgotpassword", "", map[string]string{"email": "dan@example.com"})
	if resp.Code != http.StatusServiceUnavailable || resp.Body.Message != "Unable to send reset email right now" {
		t.Fatalf("mail failure: %d %+v", resp.Code, resp.Body)
	}
}

func TestJobFlow(t *testing.T) {
	ts := newTestServer(t)
	hr, _ := ts.session(t, "Eve", "eve@example.com", "hr")
	candidate, _ := ts.session(t, "Fin", "fin@example.com", "candidate")

	resp := ts.do(t, http.MethodPost, "/api/jobs/create-jobs", hr, map[string]any{
		"title": "Go Engineer", "description": "APIs", "location": "Berlin",
		"skills": []string{"Go"}, "applyType": "internal", "applyUrl": "https://x.example",
	})
	if resp.Code != http.StatusOK || resp.Body.Message != "Job created successfully" {
		t.Fatalf("create: %d %+v", resp.Code, resp.Body)
	}
	var job domain.Job
	if err := json.Unmarshal(resp.Raw, &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ApplyURL != nil {
		t.Fatalf("internal job must have null applyUrl")
	}
	if !strings.Contains(string(resp.Raw), `"applyUrl":null`) {
		t.Fatalf("expected explicit null applyUrl in %s", resp.Raw)
	}

	resp = ts.do(t, http.MethodPost, "/api/jobs/create-jobs", hr, map[string]any{
		"title": "Ext", "description": "d", "location": "l", "applyType": "external",
	})
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "applyUrl is required for external jobs" {
		t.Fatalf("external without url: %d %+v", resp.Code, resp.Body)
	}

	resp = ts.do(t, http.MethodGet, "/api/jobs/slug/"+job.Slug, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("by slug: %d %+v", resp.Code, resp.Body)
	}

	resp = ts.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/apply", candidate, map[string]string{"resumeUrl": "https://cdn.example.com/cv.pdf"})
	if resp.Code != http.StatusOK || resp.Body.Message != "Application submitted successfully" {
		t.Fatalf("apply: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/apply", candidate, map[string]string{"resumeUrl": "https://cdn.example.com/cv.pdf"})
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "You have already applied to this job" {
		t.Fatalf("duplicate apply: %d %+v", resp.Code, resp.Body)
	}

	resp = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/applicants-count", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(string(resp.Raw), `"count":1`) {
		t.Fatalf("count: %d %s", resp.Code, resp.Raw)
	}
	resp = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/applicants", candidate, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("candidate listing applicants: %d", resp.Code)
	}
	resp = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/applicants", hr, nil)
	if resp.Code != http.StatusOK || !strings.Contains(string(resp.Raw), "fin@example.com") {
		t.Fatalf("applicants: %d %s", resp.Code, resp.Raw)
	}

	resp = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID, candidate, nil)
	if resp.Code != http.StatusOK || !strings.Contains(string(resp.Raw), `"isApplied":true`) {
		t.Fatalf("get job as candidate: %d %s", resp.Code, resp.Raw)
	}

	resp = ts.do(t, http.MethodDelete, "/api/jobs/"+job.ID, hr, nil)
	if resp.Code != http.StatusOK || resp.Body.Message != "Job archived successfully" {
		t.Fatalf("archive: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodPatch, "/api/jobs/"+job.ID+"/close", hr, nil)
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "Archived job cannot be closed" {
		t.Fatalf("close archived: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodDelete, "/api/jobs/"+job.ID+"/permanent", hr, nil)
	if resp.Code != http.StatusForbidden || resp.Body.Message != "Only admins can permanently delete jobs" {
		t.Fatalf("permanent delete by hr: %d %+v", resp.Code, resp.Body)
	}
	resp = ts.do(t, http.MethodGet, "/api/jobs/not-a-uuid", "", nil)
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "Invalid job id" {
		t.Fatalf("bad id: %d %+v", resp.Code, resp.Body)
	}
}

func TestBulkCreateMessages(t *testing.T) {
	ts := newTestServer(t)
	hr, _ := ts.session(t, "Gia", "gia@example.com", "hr")
	resp := ts.do(t, http.MethodPost, "/api/jobs/create-bulkjobs", hr, []map[string]any{})
	if resp.Code != http.StatusBadRequest || resp.Body.Message != "Request body must be a non-empty array" {
		t.Fatalf("empty bulk: %d %+v", resp.Code, resp.Body)
	}
	items := []map[string]any{
		{"title": "One", "description": "d", "location": "l"},
		{"title": "Two", "description": "d", "location": "l"},
	}
	resp = ts.do(t, http.MethodPost, "/api/jobs/create-bulkjobs", hr, items)
	if resp.Code != http.StatusOK || resp.Body.Message != "2 jobs created successfully" {
		t.Fatalf("bulk: %d %+v", resp.Code, resp.Body)
	}
}

func TestJobViewDedupWithRedis(t *testing.T) {
	ts := newTestServer(t)
	hr, _ := ts.session(t, "Hal", "hal@example.com", "hr")
	resp := ts.do(t, http.MethodPost, "/api/jobs/create-jobs", hr, map[string]any{
		"title": "Viewed", "description": "d", "location": "l",
	})
	var job domain.Job
	if err := json.Unmarshal(resp.Raw, &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}

	view := func(visitor string) string {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/view", nil)
		req.Header.Set("X-Visitor-Id", visitor)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return string(decodeResponse(t, rec).Raw)
	}
	if got := view("v-1"); !strings.Contains(got, `"counted":true`) {
		t.Fatalf("first view: %s", got)
	}
	if got := view("v-1"); !strings.Contains(got, `"counted":false`) {
		t.Fatalf("repeat view: %s", got)
	}
	if got := view("v-2"); !strings.Contains(got, `"totalViews":2`) {
		t.Fatalf("second visitor: %s", got)
	}
}

func TestUploadResumeMultipart(t *testing.T) {
	ts := newTestServer(t)
	candidate, _ := ts.session(t, "Ida", "ida@example.com", "candidate")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("resume", "cv.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(minimalPDF()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/user/resume", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+candidate)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	resp := decodeResponse(t, rec)
	if resp.Code != http.StatusOK {
		t.Fatalf("upload: %d %+v", resp.Code, resp.Body)
	}
	var upload app.ResumeUpload
	if err := json.Unmarshal(resp.Raw, &upload); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !strings.HasPrefix(upload.ResumeURL, "resumes/") || !strings.HasPrefix(upload.DownloadURL, "http://files.test/") {
		t.Fatalf("unexpected upload result %+v", upload)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/user/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected CORS headers: %v", rec.Header())
	}
}

func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

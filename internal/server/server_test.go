package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/gpacalc/internal/calc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const header = "科目区分,科目名,単位数,総合評価\n"

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	return New(opts, calc.DefaultOptions(), zaptest.NewLogger(t))
}

func uploadRequest(t *testing.T, field, filename, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/calc", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCalcScenarios(t *testing.T) {
	tests := []struct {
		name  string
		rows  string
		gpa   any
		ratio any
	}{
		{"two letter grades", "専門,線形代数,2,A+\n専門,解析学,4,B\n", 3.433, 0.3333},
		{"excluded category", "GPA計算対象外科目,演習,3,A\n専門,実験,3,C\n", 2.0, 0.5},
		{"pass/fail only", "専門,体育,4,P\n", nil, nil},
		{"undefined credit", "専門,ゼミ,不明,A+\n", nil, nil},
		{"header only", "", nil, nil},
	}
	s := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, uploadRequest(t, "file", "grades.csv", header+tt.rows))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			got := decode(t, rec)
			assert.Equal(t, tt.gpa, got["gpa"])
			assert.Equal(t, tt.ratio, got["ratio"])
			assert.Contains(t, got, "gpa")
			assert.Contains(t, got, "ratio")
		})
	}
}

func TestCalcErrors(t *testing.T) {
	s := newTestServer(t, Options{MaxUploadBytes: 1024})

	t.Run("missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "upload", "grades.csv", header))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_FILE", decode(t, rec)["error_code"])
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calc", strings.NewReader("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		rec := httptest.NewRecorder()
		big := header + strings.Repeat("専門,線形代数,2,A\n", 200)
		s.ServeHTTP(rec, uploadRequest(t, "file", "grades.csv", big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", decode(t, rec)["error_code"])
	})

	t.Run("missing columns", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "file", "grades.csv", "科目名,総合評価\n解析学,A\n"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "MISSING_COLUMNS", body["error_code"])
		assert.EqualValues(t, http.StatusUnprocessableEntity, body["status_code"])
		assert.Contains(t, body["message"], "grades.csv")
		assert.Contains(t, body["message"], "credit_count")
	})

	t.Run("unreadable workbook", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "file", "grades.xlsx", "not a workbook"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_TABLE", decode(t, rec)["error_code"])
	})
}

func TestCalcRemovesStagedUpload(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, Options{UploadDir: dir})

	for _, body := range []string{header + "専門,線形代数,2,A+\n", "科目名\nx\n"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "file", "grades.csv", body))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "staged upload left behind (status %d)", rec.Code)
	}
}

func TestCalcTooLargeWithoutContentLength(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, Options{MaxUploadBytes: 1024, UploadDir: dir})

	big := header + strings.Repeat("専門,線形代数,2,A\n", 200)
	req := uploadRequest(t, "file", "grades.csv", big)
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decode(t, rec)["error_code"])
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCORS(t *testing.T) {
	t.Run("preflight any origin", func(t *testing.T) {
		s := newTestServer(t, Options{AllowedOrigins: []string{"*"}})
		req := httptest.NewRequest(http.MethodOptions, "/api/calc", nil)
		req.Header.Set("Origin", "https://example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-Custom")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Equal(t, "X-Custom", rec.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("restricted origins", func(t *testing.T) {
		s := newTestServer(t, Options{AllowedOrigins: []string{"https://app.example.org"}})
		for origin, want := range map[string]string{
			"https://app.example.org": "https://app.example.org",
			"https://evil.example":    "",
		} {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", origin)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, uploadRequest(t, "file", "grades.csv", header))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_LIMITED", decode(t, rec)["error_code"])
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is not limited
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	s.ServeHTTP(httptest.NewRecorder(), uploadRequest(t, "file", "grades.csv", header+"専門,体育,4,P\n"))

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `gpacalc_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
	assert.Contains(t, body, `gpacalc_undefined_results_total{metric="gpa"} 1`)
	assert.Contains(t, body, `gpacalc_undefined_results_total{metric="ratio"} 1`)
	assert.Contains(t, body, "gpacalc_http_request_duration_seconds_bucket")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{UploadDir: t.TempDir()}, calc.DefaultOptions(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, Timeouts{Read: time.Second, Write: time.Second, Shutdown: time.Second}) }()

	tr := &http.Transport{DisableKeepAlives: true}
	defer tr.CloseIdleConnections()
	client := &http.Client{Transport: tr, Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunRejectsBadAddress(t *testing.T) {
	s := New(Options{}, calc.DefaultOptions(), nil)
	err := s.Run(context.Background(), "256.0.0.1:http-nope", Timeouts{})
	assert.Error(t, err)
}

package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"filegate/internal/shared/telemetry"
)

func TestTextErrorLogsCauseAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	reached := false
	r := gin.New()
	r.GET("/download/:userName/:filename", func(c *gin.Context) {
		c.Set("requestId", "req-9")
		TextError(c, http.StatusInternalServerError, "Internal error", errors.New("s3 timeout"))
	}, func(c *gin.Context) {
		reached = true
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/download/alice/a.txt", nil))

	if resp.Code != http.StatusInternalServerError || resp.Body.String() != "Internal error" {
		t.Fatalf("unexpected response: %d %q", resp.Code, resp.Body.String())
	}
	if reached {
		t.Fatalf("expected handler chain to abort")
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if entry["msg"] != "http.error" || entry["level"] != "error" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["err"] != "s3 timeout" || entry["request_id"] != "req-9" {
		t.Fatalf("missing cause or request id: %v", entry)
	}
}

func TestErrorWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(&bytes.Buffer{})
	defer restore()

	r := gin.New()
	r.GET("/activity/:userName", func(c *gin.Context) {
		Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/activity/alice", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Fatalf("unexpected code: %q", body.Error.Code)
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/happykoalaa/koala-counseling-server/internal/metrics"
	"github.com/happykoalaa/koala-counseling-server/internal/pipeline"
	"github.com/happykoalaa/koala-counseling-server/internal/quota"
	"github.com/happykoalaa/koala-counseling-server/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	usage  *quota.Tracker
}

// newTestEnv builds the full handler stack in simulation mode (no AI
// backend) over a real SQLite store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	usage := quota.NewTracker()
	m := metrics.New(prometheus.NewRegistry())
	orchestrator := pipeline.New(pipeline.Config{}, testLogger(), usage, nil, s, m)

	h := NewHTTPServer(HTTPServerConfig{Port: 3001, Address: "127.0.0.1"},
		testLogger(), orchestrator, s, usage, m)

	ts := httptest.NewServer(h.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: s, usage: usage}
}

// audioForm builds a multipart body for /api/process-audio. A nil audioData
// omits the file part entirely.
func audioForm(t *testing.T, student, mood, language string, audioData []byte, mimeType string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for field, value := range map[string]string{
		"student":  student,
		"mood":     mood,
		"language": language,
	} {
		if err := w.WriteField(field, value); err != nil {
			t.Fatalf("writing field %s: %v", field, err)
		}
	}

	if audioData != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="audio"; filename="recording.webm"`)
		header.Set("Content-Type", mimeType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("creating audio part: %v", err)
		}
		if _, err := part.Write(audioData); err != nil {
			t.Fatalf("writing audio part: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestProcessAudioSimulation(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := audioForm(t, "Min", "😢", "russian", []byte("fake-webm"), "audio/webm")
	resp, err := http.Post(env.server.URL+"/api/process-audio", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeJSON(t, resp)
	if got["success"] != true {
		t.Errorf("success = %v", got["success"])
	}

	data, ok := got["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data object: %v", got)
	}
	if data["mode"] != "SIMULATION" {
		t.Errorf("mode = %v, want SIMULATION", data["mode"])
	}
	if data["priority"] != "high" {
		t.Errorf("priority = %v, want high", data["priority"])
	}
	original, _ := data["originalText"].(string)
	if !strings.Contains(original, "Min") {
		t.Errorf("originalText %q missing student name", original)
	}
	translated, _ := data["translatedText"].(string)
	if !strings.Contains(translated, "슬퍼요") {
		t.Errorf("translatedText %q missing Korean sad phrase", translated)
	}

	n, err := env.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("records persisted = %d, want 1", n)
	}
}

func TestProcessAudioMissingFile(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := audioForm(t, "Min", "😊", "korean", nil, "")
	resp, err := http.Post(env.server.URL+"/api/process-audio", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	got := decodeJSON(t, resp)
	if got["success"] != false {
		t.Errorf("success = %v, want false", got["success"])
	}
	if got["error"] == nil {
		t.Error("error body missing")
	}

	n, err := env.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("rejected request persisted %d records", n)
	}
}

func TestProcessAudioRejectsNonAudioUpload(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := audioForm(t, "Min", "😊", "korean", []byte("%PDF-1.4"), "application/pdf")
	resp, err := http.Post(env.server.URL+"/api/process-audio", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProcessAudioQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.usage.ConsumeSpeech(1.9)

	body, contentType := audioForm(t, "Min", "😊", "korean", []byte("fake"), "audio/webm")
	resp, err := http.Post(env.server.URL+"/api/process-audio", contentType, body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}

	got := decodeJSON(t, resp)
	usage, ok := got["usage"].(map[string]any)
	if !ok {
		t.Fatalf("429 body missing usage snapshot: %v", got)
	}
	if usage["speech_minutes_used"].(float64) != 1.9 {
		t.Errorf("reported minutes = %v, want 1.9", usage["speech_minutes_used"])
	}
}

func TestRecordsListing(t *testing.T) {
	env := newTestEnv(t)

	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		rec := store.Record{
			ID:             uuid.NewString(),
			Student:        fmt.Sprintf("student-%02d", i),
			Mood:           "😊",
			Language:       "korean",
			OriginalText:   "안녕하세요.",
			TranslatedText: "안녕하세요.",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			Priority:       "normal",
		}
		if err := env.store.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	resp, err := http.Get(env.server.URL + "/api/records?page=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	got := decodeJSON(t, resp)

	if got["page"].(float64) != 2 {
		t.Errorf("page = %v", got["page"])
	}
	records, ok := got["records"].([]any)
	if !ok {
		t.Fatalf("missing records array: %v", got)
	}
	if len(records) != 5 {
		t.Fatalf("page 2 size = %d, want 5", len(records))
	}

	first := records[0].(map[string]any)
	for _, key := range []string{"student", "mood", "language", "originalText", "translatedText", "date", "priority"} {
		if _, ok := first[key]; !ok {
			t.Errorf("record missing renamed field %q: %v", key, first)
		}
	}
}

func TestRecordsRejectsBadPage(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/records?page=zero")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUsageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.usage.ConsumeSpeech(0.5)
	env.usage.ConsumeTranslate(1234)

	resp, err := http.Get(env.server.URL + "/api/usage")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	got := decodeJSON(t, resp)

	usage := got["usage"].(map[string]any)
	if usage["speech_minutes_used"].(float64) != 0.5 {
		t.Errorf("speech used = %v", usage["speech_minutes_used"])
	}
	if usage["speech_minutes_limit"].(float64) != 2.0 {
		t.Errorf("speech limit = %v", usage["speech_minutes_limit"])
	}
	if usage["translate_chars_used"].(float64) != 1234 {
		t.Errorf("translate used = %v", usage["translate_chars_used"])
	}
	if usage["translate_chars_limit"].(float64) != 15000 {
		t.Errorf("translate limit = %v", usage["translate_chars_limit"])
	}
}

func TestHealthReportsSimulationMode(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	got := decodeJSON(t, resp)

	if got["status"] != "OK" {
		t.Errorf("status = %v", got["status"])
	}
	if got["mode"] != "SIMULATION" {
		t.Errorf("mode = %v, want SIMULATION without AI backend", got["mode"])
	}
	if got["usage"] == nil {
		t.Error("health body missing usage snapshot")
	}
}

func TestRootMetadata(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	got := decodeJSON(t, resp)

	if got["status"] != "running" {
		t.Errorf("status = %v", got["status"])
	}
	if got["version"] != serviceVersion {
		t.Errorf("version = %v", got["version"])
	}
}

func TestUnknownRouteReturns404WithRoutes(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/unknown")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	got := decodeJSON(t, resp)

	routes, ok := got["availableRoutes"].([]any)
	if !ok || len(routes) == 0 {
		t.Errorf("404 body missing availableRoutes: %v", got)
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/process-audio", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	preflight, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	preflight.Body.Close()
	if preflight.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", preflight.StatusCode)
	}
	if got := preflight.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("preflight allow-methods = %q", got)
	}
}

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ewilliams-labs/cadence/internal/adapters/ffmpeg"
	"github.com/ewilliams-labs/cadence/internal/adapters/tagger"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
	"github.com/ewilliams-labs/cadence/internal/core/services"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

// --- Mocks ---

// The handler depends on the concrete orchestrator, so tests build a real
// one with mock decoding adapters.

type mockDecoder struct {
	err error

	mu      sync.Mutex
	inPath  string
	content string
}

func (m *mockDecoder) Decode(ctx context.Context, inputPath string, sr int) (ports.DecodedAudio, error) {
	data, _ := os.ReadFile(inputPath)
	m.mu.Lock()
	m.inPath = inputPath
	m.content = string(data)
	m.mu.Unlock()
	if m.err != nil {
		return ports.DecodedAudio{}, m.err
	}
	return ports.NewDecodedAudio(inputPath, sr, nil), nil
}

func (m *mockDecoder) seen() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inPath, m.content
}

type silenceLoader struct{}

func (silenceLoader) Load(path string) (domain.Waveform, error) {
	return domain.NewWaveform(make([]float64, 8000), 8000)
}

type mockRepo struct {
	mu    sync.Mutex
	saved []domain.AnalysisResult
}

func (m *mockRepo) Save(ctx context.Context, r domain.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.Meta.JobID == id {
			return r, nil
		}
	}
	return domain.AnalysisResult{}, domain.ErrNotFound
}

func (m *mockRepo) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AnalysisResult{}, m.saved...), nil
}

// --- Helpers ---

type testEnv struct {
	handler *Handler
	decoder *mockDecoder
	tmpDir  string
}

func newTestEnv(t *testing.T, decoder *mockDecoder, opts ...services.Option) testEnv {
	t.Helper()
	svc := services.NewOrchestrator(decoder, silenceLoader{}, tagger.Unavailable{}, ffmpeg.NoLoudness{}, services.DefaultOptions(), opts...)
	pool := worker.NewPool(svc, 4, nil)
	pool.Start(1)
	t.Cleanup(pool.Stop)

	tmp := t.TempDir()
	return testEnv{
		handler: NewHandler(svc, pool, Config{TmpDir: tmp}, nil),
		decoder: decoder,
		tmpDir:  tmp,
	}
}

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t, &mockDecoder{})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		filename       string
		decodeErr      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Success: wav upload with defaults",
			target:         "/analyze",
			filename:       "song.wav",
			expectedStatus: http.StatusOK,
			expectedBody:   `"preset":"full"`,
		},
		{
			name:           "Success: fast preset",
			target:         "/analyze?preset=FAST&include_segments=true",
			filename:       "My Song.MP3",
			expectedStatus: http.StatusOK,
			expectedBody:   `"preset":"fast"`,
		},
		{
			name:           "Bad Request: unsupported extension",
			target:         "/analyze",
			filename:       "notes.txt",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"UNSUPPORTED_FORMAT"`,
		},
		{
			name:           "Bad Request: missing file",
			target:         "/analyze",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "multipart field 'file' is required",
		},
		{
			name:           "Bad Request: invalid preset",
			target:         "/analyze?preset=turbo",
			filename:       "song.wav",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "preset must be fast or full",
		},
		{
			name:           "Bad Request: invalid flag",
			target:         "/analyze?include_instruments=maybe",
			filename:       "song.wav",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "include_instruments must be a boolean",
		},
		{
			name:           "Unprocessable: decode failure",
			target:         "/analyze",
			filename:       "broken.flac",
			decodeErr:      errors.New("ffmpeg: invalid data found"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"code":"DECODE_FAILED"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &mockDecoder{err: tt.decodeErr})
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, uploadRequest(t, tt.target, tt.filename, "audio-bytes"))

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}

			entries, err := os.ReadDir(env.tmpDir)
			if err != nil {
				t.Fatalf("read tmp dir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("upload not cleaned up: %d files left", len(entries))
			}
		})
	}
}

func TestHandler_AnalyzeStoresUploadUnderJobID(t *testing.T) {
	env := newTestEnv(t, &mockDecoder{})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, "/analyze", "../../etc/track.wav", "RIFF-data"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Meta struct {
			JobID    string   `json:"job_id"`
			Warnings []string `json:"warnings"`
		} `json:"meta"`
		Instruments *json.RawMessage `json:"instruments"`
		Segments    *json.RawMessage `json:"segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	inPath, content := env.decoder.seen()
	if filepath.Dir(inPath) != env.tmpDir {
		t.Errorf("upload stored in %q, want %q", filepath.Dir(inPath), env.tmpDir)
	}
	if want := body.Meta.JobID + "_track.wav"; filepath.Base(inPath) != want {
		t.Errorf("upload name = %q, want %q", filepath.Base(inPath), want)
	}
	if content != "RIFF-data" {
		t.Errorf("decoder saw %q", content)
	}
	if body.Instruments == nil {
		t.Error("instruments should be included by default")
	}
	if body.Segments != nil {
		t.Error("segments should be omitted by default")
	}
	if len(body.Meta.Warnings) == 0 {
		t.Error("expected warnings for degraded stages")
	}
}

func TestHandler_AnalyzeQueueFull(t *testing.T) {
	svc := services.NewOrchestrator(&mockDecoder{}, silenceLoader{}, tagger.Unavailable{}, ffmpeg.NoLoudness{}, services.DefaultOptions())
	pool := worker.NewPool(svc, 1, nil)
	// Never started, so the first job occupies the only slot.
	if _, err := pool.Submit(context.Background(), services.AnalyzeRequest{JobID: "blocker"}); err != nil {
		t.Fatalf("prefill queue: %v", err)
	}
	h := NewHandler(svc, pool, Config{TmpDir: t.TempDir()}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/analyze", "song.wav", "x"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"QUEUE_FULL"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Results(t *testing.T) {
	repo := &mockRepo{}
	env := newTestEnv(t, &mockDecoder{}, services.WithRepository(repo))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, "/analyze", "song.ogg", "x"))
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "get stored", target: "/analyses/" + created.Meta.JobID, expectedStatus: http.StatusOK, expectedBody: created.Meta.JobID},
		{name: "get missing", target: "/analyses/nope", expectedStatus: http.StatusNotFound, expectedBody: "analysis not found"},
		{name: "list", target: "/analyses?limit=5", expectedStatus: http.StatusOK, expectedBody: created.Meta.JobID},
		{name: "list bad limit", target: "/analyses?limit=abc", expectedStatus: http.StatusBadRequest, expectedBody: "limit must be a positive integer"},
		{name: "list zero limit", target: "/analyses?limit=0", expectedStatus: http.StatusBadRequest, expectedBody: "limit must be a positive integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_ResultsStorageDisabled(t *testing.T) {
	env := newTestEnv(t, &mockDecoder{})
	for _, target := range []string{"/analyses/abc", "/analyses"} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s: expected status 501, got %d", target, rec.Code)
		}
	}
}

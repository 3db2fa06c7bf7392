package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagetext/pagetext/internal/batch"
	"github.com/pagetext/pagetext/internal/config"
	"github.com/pagetext/pagetext/internal/engine"
)

func newTestServer(t *testing.T) (*Server, *engine.Mock) {
	t.Helper()
	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("failed to create config manager: %v", err)
	}
	mock := engine.NewMock()
	srv, err := New(Config{
		ConfigManager: mgr,
		Engine:        mock,
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, mock
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte, options string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write part: %v", err)
		}
	}
	if options != "" {
		if err := mw.WriteField("options", options); err != nil {
			t.Fatalf("failed to write options: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/ready status = %d: %s", rec.Code, rec.Body.String())
	}
	var ready struct {
		Status string `json:"status"`
		Engine string `json:"engine"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ready); err != nil {
		t.Fatalf("failed to decode ready response: %v", err)
	}
	if ready.Engine != engine.MockName {
		t.Errorf("ready engine = %q", ready.Engine)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/config status = %d", rec.Code)
	}
	var cfg config.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if cfg.Pipeline.ResizeFactor != 1.2 {
		t.Errorf("resize_factor = %v", cfg.Pipeline.ResizeFactor)
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/languages status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Engine    string   `json:"engine"`
		Languages []string `json:"languages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Engine != engine.MockName {
		t.Errorf("engine = %q", resp.Engine)
	}
	if len(resp.Languages) == 0 {
		t.Error("expected at least one language")
	}
}

func TestExtractEndpoint(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ResponseText = "recognized page text"

	t.Run("no files", func(t *testing.T) {
		body, ct := multipartBody(t, nil, "")
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("json result", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"scan.png": testPNG(t)}, "")
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var result batch.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
		if len(result.Units) != 1 {
			t.Fatalf("expected 1 unit, got %d", len(result.Units))
		}
		if result.Units[0].Text != "recognized page text" {
			t.Errorf("text = %q", result.Units[0].Text)
		}
		if result.BatchID == "" {
			t.Error("expected batch id")
		}
	})

	t.Run("text format", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"scan.png": testPNG(t)}, `{"format":"text"}`)
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
			t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), "File: scan.png") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("zip format", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"scan.png": testPNG(t)}, `{"format":"zip"}`)
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/zip" {
			t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
		}
		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		if err != nil {
			t.Fatalf("response is not a zip: %v", err)
		}
		if len(zr.File) != 1 || zr.File[0].Name != "scan_extracted.txt" {
			t.Errorf("unexpected archive contents: %v", zr.File)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"scan.png": testPNG(t)}, `{"page_seg_mode": 99}`)
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("all inputs invalid", func(t *testing.T) {
		body, ct := multipartBody(t, map[string][]byte{"junk.bin": {0x01, 0x02}}, "")
		req := httptest.NewRequest("POST", "/api/extract", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
		}
	})
}

// brokenWriter fails every body write, like a client that disconnected
// mid-response.
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

func (b *brokenWriter) WriteHeader(code int) { b.status = code }

func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestExtractTextStreamFailureLogged(t *testing.T) {
	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("failed to create config manager: %v", err)
	}
	var logBuf bytes.Buffer
	srv, err := New(Config{
		ConfigManager: mgr,
		Engine:        engine.NewMock(),
		Logger:        slog.New(slog.NewTextHandler(&logBuf, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	body, ct := multipartBody(t, map[string][]byte{"scan.png": testPNG(t)}, `{"format":"text"}`)
	req := httptest.NewRequest("POST", "/api/extract", body)
	req.Header.Set("Content-Type", ct)

	bw := &brokenWriter{}
	srv.Handler().ServeHTTP(bw, req)

	if bw.status != http.StatusOK {
		t.Errorf("status = %d", bw.status)
	}
	if !strings.Contains(logBuf.String(), "failed to stream combined text") {
		t.Errorf("write failure not logged:\n%s", logBuf.String())
	}
}

func TestBuildEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	if e := BuildEngine(cfg, nil); e.Name() != engine.TesseractName {
		t.Errorf("default engine = %s", e.Name())
	}
	cfg.Engine.Type = engine.MockName
	if e := BuildEngine(cfg, nil); e.Name() != engine.MockName {
		t.Errorf("mock engine = %s", e.Name())
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"rasoi-ai/internal/vision"
)

type fakeAnalyzer struct {
	detections   []vision.Detection
	err          error
	lastFilename string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, filename string, image io.Reader) ([]vision.Detection, error) {
	f.lastFilename = filename
	return f.detections, f.err
}

func newImageRequest(t *testing.T, fieldName, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/vision/analyze", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestVisionHandlerSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{detections: []vision.Detection{
		{Label: "paneer", Confidence: 0.92},
		{Label: "bell pepper", Confidence: 0.81},
	}}
	handler := NewVisionHandler(analyzer)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newImageRequest(t, "image", "thali.jpg"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if analyzer.lastFilename != "thali.jpg" {
		t.Errorf("filename = %q, want thali.jpg", analyzer.lastFilename)
	}

	var resp VisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Detections) != 2 || resp.Detections[0].Label != "paneer" {
		t.Errorf("unexpected detections: %+v", resp.Detections)
	}
}

func TestVisionHandlerMissingImage(t *testing.T) {
	handler := NewVisionHandler(&fakeAnalyzer{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newImageRequest(t, "photo", "thali.jpg"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVisionHandlerAnalyzerFailure(t *testing.T) {
	handler := NewVisionHandler(&fakeAnalyzer{err: errors.New("vision service down")})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newImageRequest(t, "image", "thali.jpg"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestVisionHandlerNilDetectionsEncodeAsEmptyArray(t *testing.T) {
	handler := NewVisionHandler(&fakeAnalyzer{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newImageRequest(t, "image", "thali.jpg"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(resp["detections"]) != "[]" {
		t.Errorf("detections = %s, want []", resp["detections"])
	}
}

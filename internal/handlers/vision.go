package handlers

import (
	"net/http"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/vision"
)

// maxImageSize bounds the accepted upload size (10 MiB).
const maxImageSize = 10 << 20

// VisionHandler handles HTTP requests for food image analysis.
type VisionHandler struct {
	analyzer vision.Analyzer
}

// NewVisionHandler creates a new VisionHandler.
func NewVisionHandler(analyzer vision.Analyzer) *VisionHandler {
	return &VisionHandler{analyzer: analyzer}
}

// VisionResponse represents the HTTP response payload for image analysis.
type VisionResponse struct {
	Detections []vision.Detection `json:"detections"`
}

// ServeHTTP handles multipart image uploads and returns the detected
// ingredients and dishes.
func (h *VisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		logger.WarnContext(ctx, "missing image file", "error", err)
		writeError(w, http.StatusBadRequest, "An image file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	detections, err := h.analyzer.Analyze(ctx, header.Filename, file)
	if err != nil {
		logger.ErrorContext(ctx, "vision analysis failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadGateway, "Vision service error")
		return
	}

	if detections == nil {
		detections = []vision.Detection{}
	}
	writeJSON(w, http.StatusOK, VisionResponse{Detections: detections})
}

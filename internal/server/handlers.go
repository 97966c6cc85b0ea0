package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/receiptos/receiptos/internal/dashboard"
	"github.com/receiptos/receiptos/internal/export"
	"github.com/receiptos/receiptos/internal/receipt"
	"github.com/receiptos/receiptos/internal/revocation"
	"github.com/receiptos/receiptos/internal/scanning"
	"github.com/receiptos/receiptos/internal/service"
)

// maxUploadSize bounds multipart uploads (high-resolution phone photos)
const maxUploadSize = int64(50 << 20)

// DegradedHeader is set on read responses served from a failed read
const DegradedHeader = "X-Receiptos-Degraded"

// receiptView is a receipt with its risk label
type receiptView struct {
	receipt.Receipt
	RiskLevel receipt.RiskLevel `json:"risk_level"`
}

type ingestRequest struct {
	RawText    string `json:"raw_text"`
	SourceType string `json:"source_type"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func markDegraded(w http.ResponseWriter, err error) {
	if err != nil {
		w.Header().Set(DegradedHeader, "true")
	}
}

func (s *Server) view(r receipt.Receipt) receiptView {
	return receiptView{Receipt: r, RiskLevel: s.classifier.Classify(r)}
}

// handleListReceipts returns every receipt; a failed read answers an empty list
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	result := s.service.List(r.Context())
	markDegraded(w, result.Err)

	views := make([]receiptView, 0, len(result.Value))
	for _, rc := range result.Value {
		views = append(views, s.view(rc))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(*rc))
}

// lookup resolves the {id} path value, answering 404 itself when there is no receipt
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*receipt.Receipt, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "Receipt ID required", http.StatusBadRequest)
		return nil, false
	}
	result := s.service.GetByID(r.Context(), id)
	markDegraded(w, result.Err)
	if result.Value == nil {
		writeError(w, "Receipt not found", http.StatusNotFound)
		return nil, false
	}
	return result.Value, true
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		slog.Error("Error deleting receipt", "id", id, "error", err)
		writeError(w, "Could not delete the receipt. Please try again.", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIngest creates a receipt from pasted text
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	s.create(w, r, req.RawText, req.SourceType)
}

// handleIngestFile extracts text from an uploaded document and creates a receipt
func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := contentTypeOf(header.Header.Get("Content-Type"), header.Filename, data)
	text, sourceType, err := s.extractor.ExtractText(r.Context(), data, contentType)
	if err != nil {
		slog.Error("Error extracting text", "filename", header.Filename, "content_type", contentType, "error", err)
		switch {
		case errors.Is(err, scanning.ErrUnsupportedType):
			writeError(w, err.Error(), http.StatusUnsupportedMediaType)
		case errors.Is(err, scanning.ErrNoText), errors.Is(err, scanning.ErrNoScanner):
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			writeError(w, "Could not read the document. Please try again.", http.StatusBadGateway)
		}
		return
	}

	if override := r.FormValue("source_type"); override != "" {
		sourceType = override
	}
	s.create(w, r, text, sourceType)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, text, sourceType string) {
	rc, err := s.service.Create(r.Context(), text, sourceType)
	if errors.Is(err, service.ErrEmptyText) {
		writeError(w, "raw_text is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Error creating receipt", "source_type", sourceType, "error", err)
		writeError(w, "Could not create the receipt. Please try again.", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(*rc))
}

// contentTypeOf picks the upload's media type from its header, its extension, then its bytes
func contentTypeOf(declared, filename string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".eml":
		return "message/rfc822"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	}
	return http.DetectContentType(data)
}

// handleLetter drafts a letter to the receipt's entity
func (s *Server) handleLetter(w http.ResponseWriter, r *http.Request) {
	kind, err := revocation.ParseLetterKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rc, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, revocation.Draft(*rc, kind))
}

// handleInbox returns the receipts as inbox rows
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	result := s.service.List(r.Context())
	markDegraded(w, result.Err)
	writeJSON(w, http.StatusOK, dashboard.Items(result.Value, s.classifier, s.now()))
}

// handleDashboard summarizes receipts and revocation requests
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := dashboard.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipts := s.service.List(r.Context())
	requests := s.service.Requests(r.Context())
	markDegraded(w, errors.Join(receipts.Err, requests.Err))

	stats := dashboard.Summarize(receipts.Value, requests.Value, rng, s.now(), s.classifier)
	writeJSON(w, http.StatusOK, stats)
}

// handleExport downloads every receipt as a spreadsheet
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	result := s.service.List(r.Context())
	markDegraded(w, result.Err)

	data, err := export.ReceiptsXLSX(result.Value, s.classifier)
	if err != nil {
		slog.Error("Error exporting receipts", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("receipts-%s.xlsx", s.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(data)
}

// handleLoadSamples replaces the local collection with the bundled samples
func (s *Server) handleLoadSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.service.LoadSamples()
	if err != nil {
		slog.Error("Error loading samples", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	views := make([]receiptView, 0, len(samples))
	for _, rc := range samples {
		views = append(views, s.view(rc))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleHealth reports the mode the server runs in
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "backend"
	if s.service.LocalMode() {
		mode = "local"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": mode})
}

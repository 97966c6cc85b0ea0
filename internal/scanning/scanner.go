package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoText is returned when a document yields no readable text
	ErrNoText = errors.New("no text found in document")

	// ErrNoScanner is returned when an image needs transcribing but no model is configured
	ErrNoScanner = errors.New("no scanner configured for images")

	// ErrUnsupportedType is returned for content types that cannot be read
	ErrUnsupportedType = errors.New("unsupported content type")
)

// Scanner defines the interface for vision model transcription
type Scanner interface {
	// Transcribe reads all text in an image or PDF
	Transcribe(ctx context.Context, data []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Extractor turns uploaded documents into plain text
type Extractor struct {
	scanner Scanner
}

// NewExtractor creates an Extractor. scanner may be nil, in which case only
// text, email and PDFs with a text layer can be read.
func NewExtractor(scanner Scanner) *Extractor {
	return &Extractor{scanner: scanner}
}

// ExtractText returns the document's text and the source type to ingest it under
func (e *Extractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, string, error) {
	mediaType := mediaTypeOf(contentType)

	switch {
	case mediaType == "text/plain" || mediaType == "text/markdown":
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("%w: text is not UTF-8", ErrUnsupportedType)
		}
		text, err := cleanText(string(data))
		return text, "text", err

	case mediaType == "message/rfc822":
		text, err := EmailText(data)
		if err != nil {
			return "", "", err
		}
		return text, "email", nil

	case mediaType == "application/pdf":
		text, err := pdfText(data)
		if err == nil {
			return text, "pdf", nil
		}
		slog.Info("PDF has no text layer, transcribing", "error", err)
		text, err = e.transcribe(ctx, data, mediaType)
		return text, "pdf", err

	case strings.HasPrefix(mediaType, "image/"):
		text, err := e.transcribe(ctx, data, mediaType)
		return text, "image", err
	}

	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
}

func (e *Extractor) transcribe(ctx context.Context, data []byte, mediaType string) (string, error) {
	if e.scanner == nil {
		return "", ErrNoScanner
	}
	raw, err := e.scanner.Transcribe(ctx, data, mediaType)
	if err != nil {
		slog.Error("Failed to transcribe document",
			"content_type", mediaType,
			"file_size", len(data),
			"error", err,
		)
		return "", fmt.Errorf("transcribing document: %w", err)
	}
	return cleanTranscript(raw)
}

// mediaTypeOf lower-cases a Content-Type and drops its parameters
func mediaTypeOf(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		return strings.TrimSpace(contentType[:i])
	}
	return contentType
}

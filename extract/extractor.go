package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/poiesic/lorekeep/core"
)

// Accepted media types.
const (
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
	MediaTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeMSWord   = "application/msword"
	MediaTypePDF      = "application/pdf"

	mediaTypeOctetStream = "application/octet-stream"
)

// DefaultMaxSize is the default per-file size limit (10 MiB).
const DefaultMaxSize int64 = 10 << 20

// pdfMessage is returned for PDF uploads. PDF parsing is intentionally not
// offered; users are asked to paste the text instead.
const pdfMessage = "PDF files are not supported; copy the document text and add it as a text source"

// File is one uploaded document.
type File struct {
	Name      string
	MediaType string // Declared media type; parameters are ignored
	Content   []byte
	Size      int64 // Declared byte length; len(Content) is used when zero
}

func (f File) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// Extractor converts raw document bytes into text.
// It performs no writes and is safe for concurrent use.
type Extractor struct {
	maxSize int64
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxSize sets the per-file size limit in bytes.
// Values <= 0 restore DefaultMaxSize.
func WithMaxSize(size int64) Option {
	return func(e *Extractor) {
		if size <= 0 {
			size = DefaultMaxSize
		}
		e.maxSize = size
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e
}

// MaxSize returns the configured per-file size limit.
func (e *Extractor) MaxSize() int64 {
	return e.maxSize
}

// Extract returns the text of f.
// Failures are *core.IngestError values naming f; a cancelled context yields
// the context's error.
func (e *Extractor) Extract(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mediaType := ResolveMediaType(f.Name, f.MediaType)
	if isPDF(f) {
		mediaType = MediaTypePDF
	}
	e.logger.Debug("extracting file", "file", f.Name, "mediaType", mediaType, "size", f.size())

	var decode func(File) (string, error)
	switch mediaType {
	case MediaTypeText, MediaTypeMarkdown:
		decode = decodeText
	case MediaTypeDOCX:
		decode = decodeDOCX
	case MediaTypeMSWord:
		decode = decodeMSWord
	case MediaTypePDF:
		return "", core.NewIngestError(core.KindUnsupportedFormat, f.Name, pdfMessage, nil)
	default:
		return "", core.NewIngestError(core.KindUnsupportedFormat, f.Name, fmt.Sprintf("media type %q is not accepted", mediaType), nil)
	}

	if f.size() > e.maxSize || int64(len(f.Content)) > e.maxSize {
		return "", core.NewIngestError(core.KindTooLarge, f.Name, formatLimit(e.maxSize), nil)
	}

	text, err := decode(f)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

// ResolveMediaType returns the canonical media type for a declared type,
// falling back to the file extension when the declared type is missing or
// generic.
func ResolveMediaType(name, declared string) string {
	mediaType := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if mediaType != "" && mediaType != mediaTypeOctetStream {
		return mediaType
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return MediaTypeText
	case ".md", ".markdown":
		return MediaTypeMarkdown
	case ".docx":
		return MediaTypeDOCX
	case ".doc":
		return MediaTypeMSWord
	case ".pdf":
		return MediaTypePDF
	}
	return mediaType
}

var pdfMagic = []byte("%PDF-")

// isPDF reports whether f is a PDF by name or content, whatever its declared
// media type.
func isPDF(f File) bool {
	return strings.EqualFold(filepath.Ext(f.Name), ".pdf") || bytes.HasPrefix(f.Content, pdfMagic)
}

func formatLimit(limit int64) string {
	if limit%(1<<20) == 0 {
		return fmt.Sprintf("exceeds the %d MiB limit", limit>>20)
	}
	return fmt.Sprintf("exceeds the %d byte limit", limit)
}

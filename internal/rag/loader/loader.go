package loader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/customHttpClient"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// LoadError means no usable content could be produced for one input.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadError(source, reason string, err error) *LoadError {
	return &LoadError{Source: source, Reason: reason, Err: err}
}

type Loaded struct {
	Units        []commonModels.Unit
	DocumentType string
}

type Options struct {
	WebTimeout  time.Duration
	WebMaxBytes int64
	UserAgent   string
	PageTimeout time.Duration
	HTTPClient  *http.Client
}

type Loader struct {
	opts   Options
	client *http.Client
	logger *logger_i.Logger
}

func New(opts Options) *Loader {
	if opts.WebTimeout <= 0 {
		opts.WebTimeout = config.DefaultWebTimeoutSeconds * time.Second
	}
	if opts.WebMaxBytes <= 0 {
		opts.WebMaxBytes = config.DefaultWebMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultWebUserAgent
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = config.PageExtractTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = customHttpClient.NewClient(opts.WebTimeout)
	}
	return &Loader{
		opts:   opts,
		client: client,
		logger: logger_i.NewLogger("ContentLoader"),
	}
}

// SupportedExtension reports whether LoadFile can handle files with this extension.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".txt", ".md", ".markdown", ".html", ".htm", ".docx", ".odt", ".rtf":
		return true
	}
	return false
}

func (l *Loader) LoadFile(ctx context.Context, path string) (Loaded, error) {
	log := l.logger.WithTrace(ctx).With("path", path)
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtension(ext) {
		return Loaded{}, loadError(path, fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	if _, err := os.Stat(path); err != nil {
		return Loaded{}, loadError(path, "file not readable", err)
	}

	base := map[string]any{
		"source":        path,
		"document_type": ext,
	}

	var units []commonModels.Unit
	var err error
	switch ext {
	case ".pdf":
		units, err = l.extractPDF(path, base)
	case ".txt", ".md", ".markdown":
		units, err = readVerbatim(path, base)
	case ".html", ".htm":
		units, err = l.extractHTMLFile(path, base)
	default:
		units, err = extractDocument(path, base)
	}
	if err != nil {
		log.Error("file extraction failed", "error", err)
		return Loaded{}, err
	}
	if len(units) == 0 {
		return Loaded{}, loadError(path, "no text extracted", nil)
	}

	log.Debug("file loaded", "units", len(units), "type", ext)
	return Loaded{Units: units, DocumentType: ext}, nil
}

func (l *Loader) LoadURL(ctx context.Context, rawURL string) (Loaded, error) {
	log := l.logger.WithTrace(ctx).With("url", rawURL)
	parsed, err := ValidateURL(rawURL)
	if err != nil {
		return Loaded{}, err
	}

	body, err := l.fetch(ctx, parsed.String())
	if err != nil {
		log.Warn("fetch failed", "error", err)
		return Loaded{}, err
	}

	unit, err := l.extractHTML(body, parsed)
	if err != nil {
		log.Warn("html extraction failed", "error", err)
		return Loaded{}, err
	}

	log.Debug("web page loaded", "length", len(unit.Text))
	return Loaded{Units: []commonModels.Unit{unit}, DocumentType: commonModels.DocTypeHTML}, nil
}

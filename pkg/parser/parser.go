// Package parser turns uploaded file bytes into plain text ready for
// chunking. Parsers never fail hard: unparseable input yields empty
// content plus a warning, and the pipeline decides what to do with it.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.uber.org/fx"

	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Module provides the parser registry
var Module = fx.Module("parser",
	fx.Provide(NewRegistry),
)

// Result is the outcome of parsing one file.
type Result struct {
	// Content is the extracted text as a single UTF-8 string
	Content string
	// Metadata carries file-level attributes forward into every chunk
	Metadata map[string]string
	// Warnings are non-fatal problems encountered while parsing
	Warnings []string
}

// Parser extracts text from one family of file formats.
type Parser interface {
	// Extensions returns the file extensions this parser handles,
	// lower-case without the leading dot
	Extensions() []string

	// Parse extracts text from data. It never returns an error for bad
	// content; it reports problems through Result.Warnings instead.
	Parse(ctx context.Context, data []byte, fileName string) *Result
}

// Registry selects a parser by file extension.
type Registry struct {
	parsers map[string]Parser
	log     *slog.Logger
}

// NewRegistry builds the registry from configuration. The extraction
// service parser is registered only when the service is enabled.
func NewRegistry(cfg *config.Config, log *slog.Logger) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
		log:     log.With(logger.Scope("parser")),
	}

	r.Register(&TextParser{})
	r.Register(&CSVParser{})

	if cfg.Extraction.Enabled {
		r.Register(NewExtractionParser(cfg.Extraction, log))
		r.log.Info("extraction service parser registered",
			slog.String("url", cfg.Extraction.ServiceURL))
	}

	return r
}

// Register adds a parser for all of its extensions. Later registrations
// win, so format-specific parsers can override generic ones.
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Lookup returns the parser for a file name's extension, if any.
func (r *Registry) Lookup(fileName string) (Parser, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	p, ok := r.parsers[ext]
	return p, ok
}

// Supported reports whether any parser handles the file name's extension.
func (r *Registry) Supported(fileName string) bool {
	_, ok := r.Lookup(fileName)
	return ok
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	return out
}

// Parse dispatches to the parser for the file's extension. An unsupported
// extension yields an empty result with a warning so the pipeline can fail
// the document with a clear message.
func (r *Registry) Parse(ctx context.Context, data []byte, fileName string) *Result {
	p, ok := r.Lookup(fileName)
	if !ok {
		return &Result{
			Metadata: baseMetadata(fileName, len(data)),
			Warnings: []string{fmt.Sprintf("unsupported file type: %s", filepath.Ext(fileName))},
		}
	}

	res := p.Parse(ctx, data, fileName)
	if res.Metadata == nil {
		res.Metadata = baseMetadata(fileName, len(data))
	}
	return res
}

func baseMetadata(fileName string, size int) map[string]string {
	return map[string]string{
		"FileName":      filepath.Base(fileName),
		"FileExtension": strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")),
		"FileSize":      fmt.Sprintf("%d", size),
	}
}

package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// ExtractionParser delegates binary document formats to an external text
// extraction service over HTTP. The service accepts a multipart upload and
// returns the extracted text as JSON.
type ExtractionParser struct {
	serviceURL string
	client     *http.Client
	log        *slog.Logger
}

// NewExtractionParser creates a parser backed by the extraction service
func NewExtractionParser(cfg config.ExtractionConfig, log *slog.Logger) *ExtractionParser {
	return &ExtractionParser{
		serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
		client:     &http.Client{Timeout: cfg.Timeout},
		log:        log.With(logger.Scope("extraction")),
	}
}

// Extensions lists the binary formats handled by the extraction service
func (p *ExtractionParser) Extensions() []string {
	return []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "odt", "odp", "ods", "rtf", "epub"}
}

type extractionResponse struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Parse uploads the file to the extraction service and returns its text.
// Service failures are reported as warnings with empty content.
func (p *ExtractionParser) Parse(ctx context.Context, data []byte, fileName string) *Result {
	res := &Result{Metadata: baseMetadata(fileName, len(data))}

	content, meta, err := p.extract(ctx, data, fileName)
	if err != nil {
		p.log.Warn("extraction failed",
			slog.String("file", fileName),
			logger.Error(err))
		res.Warnings = append(res.Warnings, fmt.Sprintf("text extraction failed: %v", err))
		return res
	}

	for k, v := range meta {
		res.Metadata[k] = v
	}

	if strings.TrimSpace(content) == "" {
		res.Warnings = append(res.Warnings, "extraction service returned no text")
		return res
	}

	res.Content = normalizeNewlines(content)
	return res
}

func (p *ExtractionParser) extract(ctx context.Context, data []byte, fileName string) (string, map[string]string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/extract", &body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("extraction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed extractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	return parsed.Content, parsed.Metadata, nil
}

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
)

// Format selects which product sheet files are produced
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatBoth Format = "both"
	FormatJSON Format = "json"
)

// Output file names inside a session directory.
const (
	HTMLFile = "product_sheet.html"
	PDFFile  = "product_sheet.pdf"
	JSONFile = "product.json"
)

// ParseFormat accepts html, pdf, both or json. Empty means html.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatPDF, FormatBoth, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected html, pdf, both or json)", s)
	}
}

// Writer stores rendered sheets under <output_dir>/<session>/
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at outputDir
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// SessionDir returns the directory holding a session's files
func (w *Writer) SessionDir(sessionID string) string {
	return filepath.Join(w.outputDir, sessionID)
}

// Write renders the record in the requested format and returns the names of
// the files written, relative to the session directory. The JSON record is
// always written.
func (w *Writer) Write(sessionID string, record domain.ProductRecord, format Format) ([]string, error) {
	dir := w.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode product record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, JSONFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", JSONFile, err)
	}
	files := []string{JSONFile}

	if format == FormatHTML || format == FormatBoth {
		var buf bytes.Buffer
		if err := HTML(record, &buf); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, HTMLFile), buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", HTMLFile, err)
		}
		files = append(files, HTMLFile)
	}

	if format == FormatPDF || format == FormatBoth {
		pdf, err := PDF(record)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, PDFFile), pdf, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", PDFFile, err)
		}
		files = append(files, PDFFile)
	}

	log.Info().Str("session_id", sessionID).Strs("files", files).Msg("[RENDER] Product sheet written")
	return files, nil
}

package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/phuslu/log"
	"golang.org/x/text/unicode/norm"

	"github.com/productsheet/backend/internal/domain"
)

// maxTextBytes caps the plain text read from one document.
const maxTextBytes = 2 << 20

// Extract reads the text of every page of a PDF document and cleans it.
// Malformed documents yield domain.ErrInvalidDocument, documents without a
// text layer yield domain.ErrEmptyDocument.
func Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("[PDFTEXT] Recovered from reader panic")
			text = ""
			err = fmt.Errorf("%w: %v", domain.ErrInvalidDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	raw, err := io.ReadAll(io.LimitReader(plain, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	text = Clean(string(raw))
	if text == "" {
		return "", domain.ErrEmptyDocument
	}

	log.Info().Int("pages", reader.NumPage()).Int("length", len([]rune(text))).Msg("[PDFTEXT] Text extracted")
	return text, nil
}

// Clean normalises extracted text: NFC composition, control characters
// removed, runs of spaces collapsed and blank lines dropped.
func Clean(s string) string {
	s = norm.NFC.String(s)

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(stripControl(line), unicode.IsSpace), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}

package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/productsheet/backend/internal/domain"
)

const (
	pageMargin = 20.0
	labelWidth = 55.0
	lineHeight = 6.0
)

// PDF renders the product sheet as an A4 document
func PDF(record domain.ProductRecord) ([]byte, error) {
	s := newSheet(record)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(s.Title, true)
	pdf.AddPage()

	// Core fonts are cp1252; accented French text goes through the translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, tr(s.Title), "", "C", false)
	if s.Description != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(s.Description), "", "C", false)
	}
	pdf.SetDrawColor(0, 123, 255)
	pdf.SetLineWidth(0.5)
	pdf.Ln(2)
	pdf.Line(pageMargin, pdf.GetY(), 210-pageMargin, pdf.GetY())
	pdf.Ln(4)

	table := func(heading string, rows []row) {
		if len(rows) == 0 {
			return
		}
		section(pdf, tr(heading))
		for _, r := range rows {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(labelWidth, lineHeight, tr(r.Label), "B", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, lineHeight, tr(r.Value), "B", "L", false)
		}
		pdf.Ln(3)
	}

	list := func(heading string, items []string, sep string) {
		if len(items) == 0 {
			return
		}
		section(pdf, tr(heading))
		pdf.SetFont("Arial", "", 10)
		if sep != "" {
			pdf.MultiCell(0, lineHeight, tr(strings.Join(items, sep)), "", "L", false)
		} else {
			for _, item := range items {
				pdf.MultiCell(0, lineHeight, tr("- "+item), "", "L", false)
			}
		}
		pdf.Ln(3)
	}

	table("Informations générales", s.Identity)
	table("Caractéristiques techniques", s.Specs)
	table("Dimensions", s.Dimensions)
	list("Fonctionnalités", s.Features, "")
	list("Certifications", s.Certifications, " | ")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, heading string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 123, 255)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	pdf.SetTextColor(51, 51, 51)
}

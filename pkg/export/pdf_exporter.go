package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0 // A4 landscape minus margins
	pageBottom = 190.0
)

// PDFExporter renders documents as one table per section on landscape pages.
type PDFExporter struct {
	// Weights size columns relative to each other by header name; unknown headers weigh 1.
	Weights map[string]float64
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title and one table per section.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 15)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	for i, section := range doc.Sections {
		if len(section.Data.Headers) == 0 {
			return nil, fmt.Errorf("pdf section %q requires at least one header", section.Title)
		}
		if i > 0 {
			pdf.AddPage()
		}
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, section.Title, "", 1, "L", false, 0, "")
		}
		widths := e.columnWidths(section.Data.Headers)
		writeHeader(pdf, section.Data.Headers, widths)

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Data.Rows {
			if pdf.GetY() > pageBottom {
				pdf.AddPage()
				writeHeader(pdf, section.Data.Headers, widths)
				pdf.SetFont("Arial", "", 9)
			}
			for j, header := range section.Data.Headers {
				pdf.CellFormat(widths[j], 7, row[header], "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		if len(section.Data.Rows) == 0 {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, "No sessions scheduled", "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	total := 0.0
	weights := make([]float64, len(headers))
	for i, header := range headers {
		w, ok := e.Weights[header]
		if !ok || w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	for i := range weights {
		weights[i] = pageWidth * weights[i] / total
	}
	return weights
}

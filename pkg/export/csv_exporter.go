package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is one titled table of a document, e.g. a single level's grid.
type Section struct {
	Title string
	Data  Dataset
}

// Document groups the sections rendered into one file.
type Document struct {
	Title    string
	Sections []Section
}

// SectionColumn is prepended to CSV output when a document has several sections.
const SectionColumn = "Section"

// CSVExporter renders documents into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render flattens the document into a single CSV table. Multi-section documents
// gain a leading Section column so rows stay attributable.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("csv requires at least one section")
	}
	headers := doc.Sections[0].Data.Headers
	if len(headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	multi := len(doc.Sections) > 1

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	out := headers
	if multi {
		out = append([]string{SectionColumn}, headers...)
	}
	if err := writer.Write(out); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, section := range doc.Sections {
		for _, row := range section.Data.Rows {
			record := make([]string, 0, len(out))
			if multi {
				record = append(record, section.Title)
			}
			for _, header := range headers {
				record = append(record, row[header])
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

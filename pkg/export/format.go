package export

import (
	"fmt"
	"strings"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported export encodings.
var Formats = []Format{FormatCSV, FormatPDF, FormatXLSX}

// ParseFormat normalises a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Extension returns the file extension, without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Renderer renders a dataset with the given title into a single document.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}

type csvRenderer struct{ *CSVExporter }

func (r csvRenderer) Render(data Dataset, _ string) ([]byte, error) {
	return r.CSVExporter.Render(data)
}

// RendererFor returns the renderer backing the format.
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatCSV:
		return csvRenderer{NewCSVExporter()}, nil
	case FormatPDF:
		return NewPDFExporter(), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

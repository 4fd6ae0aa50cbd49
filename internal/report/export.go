// Package report renders ETF reports for output: JSON, CSV and plain text.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/seenimoa/etfdj/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Formats
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// AllFormats returns the supported formats.
func AllFormats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatText}
}

// ParseFormat validates a format name. An empty name means JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText, "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, csv or text)", name)
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Options controls rendering details.
type Options struct {
	Color bool // ANSI-colored JSON, for terminals
}

// ════════════════════════════════════════════════════════════════════
// Writers
// ════════════════════════════════════════════════════════════════════

// Write renders a single report.
func Write(w io.Writer, rep *models.ETFReport, f Format) error {
	return WriteAll(w, []*models.ETFReport{rep}, f, Options{})
}

// WriteAll renders reports in order. JSON output is a single object for one
// report and an array otherwise; CSV output has one header for all reports.
func WriteAll(w io.Writer, reports []*models.ETFReport, f Format, opts Options) error {
	switch f {
	case FormatJSON, "":
		var v any = reports
		if len(reports) == 1 {
			v = reports[0]
		}
		return writeJSON(w, v, opts)
	case FormatCSV:
		return writeCSV(w, reports)
	case FormatText:
		for _, rep := range reports {
			if err := writeText(w, rep); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", f)
}

// WriteValue renders any JSON-encodable value, e.g. a single section.
func WriteValue(w io.Writer, v any, opts Options) error {
	return writeJSON(w, v, opts)
}

func writeJSON(w io.Writer, v any, opts Options) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	out := pretty.Pretty(buf.Bytes())
	if opts.Color {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

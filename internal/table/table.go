// Package table turns located HTML tables into ordered, typed records.
//
// Extraction is split in two steps: Rows reads a goquery selection into a
// plain [][]string grid, and Project / ProjectHeaded apply a layout to that
// grid. The second step has no DOM dependency.
package table

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/coerce"
	"github.com/seenimoa/etfdj/pkg/models"
)

// Cell selectors for Rows.
const (
	// AllCells reads header and data cells.
	AllCells = "th, td"
	// DataCells reads data cells only.
	DataCells = "td"
)

// Rows reads every row of tbl as trimmed cell texts. Only direct cells of each
// row are read so nested tables do not leak into the parent row.
func Rows(tbl *goquery.Selection, cells string) [][]string {
	root := tbl.First()
	nested := root.Is("table")
	var rows [][]string
	root.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Rows of a table nested inside root belong to that table.
		if nested && !tr.Closest("table").IsSelection(root) {
			return
		}
		var row []string
		tr.ChildrenFiltered(cells).Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

// Rule selects how a cell is coerced.
type Rule int

const (
	// String keeps the trimmed text.
	String Rule = iota
	// Number applies coerce.ParseNumber.
	Number
	// Percentage applies coerce.ParsePercentage.
	Percentage
	// Ranking applies coerce.ParseRanking.
	Ranking
	// NumberOrRank keeps text containing "/" verbatim and parses anything
	// else as a number.
	NumberOrRank
)

// Apply coerces a single cell text with rule.
func Apply(rule Rule, text string) models.Value {
	switch rule {
	case String:
		return models.Text(strings.TrimSpace(text))
	case Number:
		if f, ok := coerce.ParseNumber(text); ok {
			return models.Number(f)
		}
	case Percentage:
		if f, ok := coerce.ParsePercentage(text); ok {
			return models.Number(f)
		}
	case Ranking:
		if r, t, ok := coerce.ParseRanking(text); ok {
			return models.Ranking(r, t)
		}
	case NumberOrRank:
		if coerce.IsRanking(text) {
			return models.Text(strings.TrimSpace(text))
		}
		if f, ok := coerce.ParseNumber(text); ok {
			return models.Number(f)
		}
	}
	return models.Absent()
}

// Column maps the cell at Index to the field Name.
type Column struct {
	Name  string
	Index int
	Rule  Rule
}

// Layout describes a fixed-column table.
type Layout struct {
	HeaderRows int
	MinCols    int
	Columns    []Column
}

// minCols is the effective threshold: never lower than the widest column
// index the layout reads.
func (l Layout) minCols() int {
	n := l.MinCols
	for _, c := range l.Columns {
		if c.Index+1 > n {
			n = c.Index + 1
		}
	}
	return n
}

// Record is one projected row keyed by column name.
type Record map[string]models.Value

// Text returns the named field as a string; absent fields are "".
func (r Record) Text(name string) string {
	return r[name].String()
}

// Float returns the named numeric field, nil when absent.
func (r Record) Float(name string) *float64 {
	return r[name].FloatPtr()
}

// Project skips the header rows, drops rows narrower than the layout's
// minimum and coerces the remaining rows positionally. Output order is
// source order.
func Project(rows [][]string, l Layout) []Record {
	if l.HeaderRows >= len(rows) {
		return []Record{}
	}
	need := l.minCols()
	skip := max(l.HeaderRows, 0)
	out := make([]Record, 0, len(rows)-skip)
	for _, row := range rows[skip:] {
		if len(row) < need {
			continue
		}
		rec := make(Record, len(l.Columns))
		for _, c := range l.Columns {
			rec[c.Name] = Apply(c.Rule, row[c.Index])
		}
		out = append(out, rec)
	}
	return out
}

// Entry is one header-keyed cell of a HeadedRow.
type Entry struct {
	Column string
	Value  models.Value
}

// HeadedRow is a row of a table whose first row names the columns.
type HeadedRow struct {
	Label   string
	Entries []Entry
}

// ProjectHeaded reads the first row as column headers and projects every
// following row into a label (first cell) plus one entry per remaining header.
//
// minCols is the only width check: rows with fewer cells are dropped. A kept
// row narrower than the header is padded with absent values, so every
// returned row has exactly one entry per header column and a missing trailing
// cell reads the same as an empty one.
func ProjectHeaded(rows [][]string, minCols int, rule Rule) []HeadedRow {
	if len(rows) == 0 {
		return []HeadedRow{}
	}
	header := rows[0]
	if minCols < 1 {
		minCols = 1
	}
	out := make([]HeadedRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < minCols {
			continue
		}
		hr := HeadedRow{Label: row[0]}
		for i := 1; i < len(header); i++ {
			v := models.Absent()
			if i < len(row) {
				v = Apply(rule, row[i])
			}
			hr.Entries = append(hr.Entries, Entry{Column: header[i], Value: v})
		}
		out = append(out, hr)
	}
	return out
}

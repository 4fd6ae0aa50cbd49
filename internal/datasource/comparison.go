package datasource

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/table"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

const comparisonTables = "table.datalist"

// Minimum cells per row for the overall and monthly comparison tables.
const (
	overallMinCols = 5
	monthlyMinCols = 8
)

// GetReturnComparison fetches the comparison page. The first datalist table is
// the overall comparison and the second, when present, the monthly one.
func (c *Client) GetReturnComparison(ctx context.Context, ticker string) (models.ReturnComparison, error) {
	symbol := utils.NormalizeTicker(ticker)
	doc, err := c.fetchDocument(ctx, models.SectionReturnComparison, symbol)
	if err != nil {
		return emptyComparison(), err
	}
	cmp, ok := parseReturnComparison(doc)
	if !ok {
		return cmp, tableNotFound(models.SectionReturnComparison, symbol, comparisonTables)
	}
	return cmp, nil
}

func emptyComparison() models.ReturnComparison {
	return models.ReturnComparison{
		Overall: models.AbsentRows[models.ComparisonRow](),
		Monthly: models.AbsentRows[models.ComparisonRow](),
	}
}

func parseReturnComparison(doc *goquery.Document) (models.ReturnComparison, bool) {
	cmp := emptyComparison()
	tables := doc.Find(comparisonTables)
	if tables.Length() == 0 {
		return cmp, false
	}
	cmp.Overall = models.PresentRows(comparisonRows(tables.Eq(0), overallMinCols))
	if tables.Length() > 1 {
		cmp.Monthly = models.PresentRows(comparisonRows(tables.Eq(1), monthlyMinCols))
	}
	return cmp, true
}

// comparisonRows keys each row by the header texts. Cells holding "rank/total"
// stay text, everything else is read as a number.
func comparisonRows(tbl *goquery.Selection, minCols int) []models.ComparisonRow {
	headed := table.ProjectHeaded(table.Rows(tbl, table.AllCells), minCols, table.NumberOrRank)
	rows := make([]models.ComparisonRow, 0, len(headed))
	for _, h := range headed {
		row := models.ComparisonRow{Item: h.Label, Cells: make([]models.ComparisonCell, 0, len(h.Entries))}
		for _, e := range h.Entries {
			row.Cells = append(row.Cells, models.ComparisonCell{Column: e.Column, Value: e.Value})
		}
		rows = append(rows, row)
	}
	return rows
}

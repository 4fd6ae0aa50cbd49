package datasource

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/table"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

const (
	monthlyTrendTable   = "table#stable2"
	quarterlyTrendTable = "table#stable3"
	yearlyTrendTable    = "table#stable"
)

// GetReturnTrends fetches the return trend page. Each of the three tables is
// optional; only a page with none of them is an error.
func (c *Client) GetReturnTrends(ctx context.Context, ticker string) (models.ReturnTrends, error) {
	symbol := utils.NormalizeTicker(ticker)
	doc, err := c.fetchDocument(ctx, models.SectionReturnTrends, symbol)
	if err != nil {
		return emptyTrends(), err
	}
	trends, ok := parseReturnTrends(doc)
	if !ok {
		locators := strings.Join([]string{monthlyTrendTable, quarterlyTrendTable, yearlyTrendTable}, ", ")
		return trends, tableNotFound(models.SectionReturnTrends, symbol, locators)
	}
	return trends, nil
}

func emptyTrends() models.ReturnTrends {
	return models.ReturnTrends{
		Monthly:   models.AbsentRows[models.TrendRow](),
		Quarterly: models.AbsentRows[models.TrendRow](),
		Yearly:    models.AbsentRows[models.TrendRow](),
	}
}

func parseReturnTrends(doc *goquery.Document) (models.ReturnTrends, bool) {
	trends := emptyTrends()
	found := false
	for _, t := range []struct {
		locator string
		dst     *models.RowSet[models.TrendRow]
	}{
		{monthlyTrendTable, &trends.Monthly},
		{quarterlyTrendTable, &trends.Quarterly},
		{yearlyTrendTable, &trends.Yearly},
	} {
		tbl := doc.Find(t.locator).First()
		if tbl.Length() == 0 {
			continue
		}
		*t.dst = models.PresentRows(trendRows(tbl))
		found = true
	}
	return trends, found
}

// trendRows reads the header row as period labels and every later column as
// a percentage.
func trendRows(tbl *goquery.Selection) []models.TrendRow {
	headed := table.ProjectHeaded(table.Rows(tbl, table.AllCells), 2, table.Percentage)
	rows := make([]models.TrendRow, 0, len(headed))
	for _, h := range headed {
		row := models.TrendRow{Indicator: h.Label, Values: make([]models.PeriodReturn, 0, len(h.Entries))}
		for _, e := range h.Entries {
			row.Values = append(row.Values, models.PeriodReturn{Period: e.Column, Value: e.Value.FloatPtr()})
		}
		rows = append(rows, row)
	}
	return rows
}

package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/table"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

const (
	riskTable      = "table.DataTable"
	riskDateLayout = "2006/01/02"
)

var riskLayout = table.Layout{
	HeaderRows: 1,
	MinCols:    4,
	Columns: []table.Column{
		{Name: "metric", Index: 0, Rule: table.String},
		{Name: "date", Index: 1, Rule: table.String},
		{Name: "value", Index: 2, Rule: table.Percentage},
		{Name: "rank", Index: 3, Rule: table.Ranking},
	},
}

// GetRiskAnalysis fetches the risk page. Rows whose date cannot be parsed are
// left out of the result, which is returned together with a ScrapeError
// wrapping ErrBadDate.
func (c *Client) GetRiskAnalysis(ctx context.Context, ticker string) (models.RiskAnalysis, error) {
	symbol := utils.NormalizeTicker(ticker)
	doc, err := c.fetchDocument(ctx, models.SectionRiskAnalysis, symbol)
	if err != nil {
		return models.RiskAnalysis{}, err
	}
	risk, bad, ok := parseRiskAnalysis(doc)
	if !ok {
		return risk, tableNotFound(models.SectionRiskAnalysis, symbol, riskTable)
	}
	if len(bad) > 0 {
		return risk, &ScrapeError{
			Report: models.SectionRiskAnalysis,
			Ticker: symbol,
			Reason: fmt.Sprintf("%v in %d row(s): %s", ErrBadDate, len(bad), strings.Join(bad, ", ")),
			Err:    ErrBadDate,
		}
	}
	return risk, nil
}

// parseRiskAnalysis returns the metrics keyed by name plus a description of
// every row dropped for a malformed date. A later row with the same metric
// name replaces an earlier one.
func parseRiskAnalysis(doc *goquery.Document) (models.RiskAnalysis, []string, bool) {
	risk := models.RiskAnalysis{}
	tbl := doc.Find(riskTable).First()
	if tbl.Length() == 0 {
		return risk, nil, false
	}

	var bad []string
	for _, r := range table.Project(table.Rows(tbl, table.AllCells), riskLayout) {
		metric := r.Text("metric")
		raw := r.Text("date")
		d, err := time.Parse(riskDateLayout, raw)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s (%q)", metric, raw))
			continue
		}

		m := models.RiskMetric{
			Metric: metric,
			Date:   models.NewDate(d.Year(), d.Month(), d.Day()),
			Value:  r.Float("value"),
		}
		if v := r["rank"]; !v.IsAbsent() {
			rank, total := v.Rank, v.Total
			m.Rank, m.Total = &rank, &total
		}
		risk[metric] = m
	}
	return risk, bad, true
}

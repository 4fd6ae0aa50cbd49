package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/seenimoa/etfdj/pkg/models"
)

// Record is one cell of a report in long format. Absent values are empty.
type Record struct {
	Ticker  string `csv:"ticker"`
	Section string `csv:"section"`
	Table   string `csv:"table"`
	Row     int    `csv:"row"`
	Column  string `csv:"column"`
	Value   string `csv:"value"`
}

func writeCSV(w io.Writer, reports []*models.ETFReport) error {
	var records []Record
	for _, rep := range reports {
		records = append(records, Flatten(rep)...)
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return nil
}

// flattener collects records for one report.
type flattener struct {
	ticker  string
	records []Record
}

func (f *flattener) add(section models.Section, table string, row int, column, value string) {
	f.records = append(f.records, Record{
		Ticker:  f.ticker,
		Section: string(section),
		Table:   table,
		Row:     row,
		Column:  column,
		Value:   value,
	})
}

// Flatten turns a report into long-format records. Sections keep report
// order, rows keep page order, and risk metrics are sorted by name. Absent
// tables produce no records.
func Flatten(rep *models.ETFReport) []Record {
	f := &flattener{ticker: rep.Ticker}

	info := rep.BasicInfo.ByLabel()
	for _, label := range models.BasicInfoLabels {
		f.add(models.SectionBasicInfo, "profile", 0, label, info[label])
	}

	flattenAllocation(f, "by_region", rep.Holdings.ByRegion)
	flattenAllocation(f, "by_sector", rep.Holdings.BySector)
	if rep.Holdings.TopHoldings.Present {
		for i, h := range rep.Holdings.TopHoldings.Rows {
			f.add(models.SectionHoldings, "top_holdings", i, "name", h.Name)
			f.add(models.SectionHoldings, "top_holdings", i, "weight_pct", optional(h.WeightPct))
			f.add(models.SectionHoldings, "top_holdings", i, "shares", optional(h.Shares))
		}
	}

	metrics := make([]string, 0, len(rep.RiskAnalysis))
	for name := range rep.RiskAnalysis {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)
	for i, name := range metrics {
		m := rep.RiskAnalysis[name]
		f.add(models.SectionRiskAnalysis, "metrics", i, "metric", m.Metric)
		f.add(models.SectionRiskAnalysis, "metrics", i, "date", m.Date.String())
		f.add(models.SectionRiskAnalysis, "metrics", i, "value_pct", optional(m.Value))
		f.add(models.SectionRiskAnalysis, "metrics", i, "rank", optionalInt(m.Rank))
		f.add(models.SectionRiskAnalysis, "metrics", i, "total", optionalInt(m.Total))
	}

	flattenComparison(f, "overall", rep.ReturnComparison.Overall)
	flattenComparison(f, "monthly", rep.ReturnComparison.Monthly)

	flattenTrend(f, "monthly", rep.ReturnTrends.Monthly)
	flattenTrend(f, "quarterly", rep.ReturnTrends.Quarterly)
	flattenTrend(f, "yearly", rep.ReturnTrends.Yearly)

	for _, s := range models.AllSections() {
		if msg, ok := rep.Errors[s]; ok {
			f.add(s, "error", 0, "message", msg)
		}
	}
	return f.records
}

func flattenAllocation(f *flattener, table string, rows models.RowSet[models.AllocationRow]) {
	if !rows.Present {
		return
	}
	for i, r := range rows.Rows {
		f.add(models.SectionHoldings, table, i, "name", r.Name)
		f.add(models.SectionHoldings, table, i, "amount_10k_usd", optional(r.Amount))
		f.add(models.SectionHoldings, table, i, "weight_pct", optional(r.WeightPct))
	}
}

func flattenComparison(f *flattener, table string, rows models.RowSet[models.ComparisonRow]) {
	if !rows.Present {
		return
	}
	for i, r := range rows.Rows {
		f.add(models.SectionReturnComparison, table, i, "item", r.Item)
		for _, c := range r.Cells {
			f.add(models.SectionReturnComparison, table, i, c.Column, c.Value.String())
		}
	}
}

func flattenTrend(f *flattener, table string, rows models.RowSet[models.TrendRow]) {
	if !rows.Present {
		return
	}
	for i, r := range rows.Rows {
		f.add(models.SectionReturnTrends, table, i, "indicator", r.Indicator)
		for _, v := range r.Values {
			f.add(models.SectionReturnTrends, table, i, v.Period, optional(v.Value))
		}
	}
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

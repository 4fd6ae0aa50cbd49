package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/seenimoa/etfdj/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func sampleReport() *models.ETFReport {
	return &models.ETFReport{
		Ticker: "VTI",
		BasicInfo: models.BasicInfo{
			Name:     "Vanguard整體股市ETF",
			FundSize: "$300,000",
		},
		Holdings: models.Holdings{
			ByRegion: models.PresentRows([]models.AllocationRow{
				{Name: "北美", Amount: f64(12345.67), WeightPct: f64(98.5)},
				{Name: "歐洲", WeightPct: f64(1.5)},
			}),
			BySector:    models.PresentRows[models.AllocationRow](nil),
			TopHoldings: models.AbsentRows[models.TopHolding](),
		},
		RiskAnalysis: models.RiskAnalysis{
			"追蹤誤差": {
				Metric: "追蹤誤差",
				Date:   models.NewDate(2024, time.January, 15),
				Value:  f64(0.12),
				Rank:   intp(142),
				Total:  intp(859),
			},
			"Beta": {
				Metric: "Beta",
				Date:   models.NewDate(2024, time.January, 15),
				Value:  f64(1.02),
			},
		},
		ReturnComparison: models.ReturnComparison{
			Overall: models.PresentRows([]models.ComparisonRow{{
				Item: "報酬率",
				Cells: []models.ComparisonCell{
					{Column: "一個月", Value: models.Number(3.21)},
					{Column: "一年", Value: models.Text("142/859")},
					{Column: "三年", Value: models.Absent()},
				},
			}}),
			Monthly: models.AbsentRows[models.ComparisonRow](),
		},
		ReturnTrends: models.ReturnTrends{
			Monthly: models.PresentRows([]models.TrendRow{{
				Indicator: "報酬率",
				Values:    []models.PeriodReturn{{Period: "2024/09", Value: f64(1.9)}, {Period: "2024/10", Value: nil}},
			}}),
			Quarterly: models.AbsentRows[models.TrendRow](),
			Yearly:    models.AbsentRows[models.TrendRow](),
		},
		Errors:    map[models.Section]string{models.SectionReturnTrends: "scrape return_trends for VTI: table#stable3: table not found"},
		FetchedAt: time.Date(2024, 10, 31, 4, 0, 0, 0, time.UTC),
	}
}

// ════════════════════════════════════════════════════════════════════
// Formats
// ════════════════════════════════════════════════════════════════════

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"txt", FormatText, false},
		{"text", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// JSON
// ════════════════════════════════════════════════════════════════════

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	for _, key := range []string{"basic_info", "holdings", "risk_analysis", "return_comparison", "return_trends"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	holdings := doc["holdings"].(map[string]any)
	if holdings["top_holdings"] != nil {
		t.Errorf("absent table should be null, got %v", holdings["top_holdings"])
	}
	if sector, ok := holdings["holdings_by_sector"].([]any); !ok || len(sector) != 0 {
		t.Errorf("present empty table should be [], got %v", holdings["holdings_by_sector"])
	}

	risk := doc["risk_analysis"].(map[string]any)["追蹤誤差"].(map[string]any)
	if risk["date"] != "2024-01-15" || risk["rank"] != float64(142) {
		t.Errorf("risk metric = %v", risk)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON should be indented")
	}
}

func TestWriteJSONMany(t *testing.T) {
	var buf bytes.Buffer
	reps := []*models.ETFReport{sampleReport(), sampleReport()}
	if err := WriteAll(&buf, reps, FormatJSON, Options{}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &docs); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d reports, want 2", len(docs))
	}
}

func TestWriteJSONColor(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAll(&buf, []*models.ETFReport{sampleReport()}, FormatJSON, Options{Color: true}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("colored output should contain ANSI escapes")
	}
}

// ════════════════════════════════════════════════════════════════════
// CSV
// ════════════════════════════════════════════════════════════════════

func TestFlatten(t *testing.T) {
	records := Flatten(sampleReport())

	find := func(section models.Section, table string, row int, column string) (Record, bool) {
		for _, r := range records {
			if r.Section == string(section) && r.Table == table && r.Row == row && r.Column == column {
				return r, true
			}
		}
		return Record{}, false
	}

	tests := []struct {
		section models.Section
		table   string
		row     int
		column  string
		want    string
	}{
		{models.SectionBasicInfo, "profile", 0, models.LabelFundSize, "$300,000"},
		{models.SectionHoldings, "by_region", 0, "amount_10k_usd", "12345.67"},
		{models.SectionHoldings, "by_region", 1, "amount_10k_usd", ""},
		{models.SectionRiskAnalysis, "metrics", 0, "metric", "Beta"},
		{models.SectionRiskAnalysis, "metrics", 1, "rank", "142"},
		{models.SectionRiskAnalysis, "metrics", 0, "rank", ""},
		{models.SectionReturnComparison, "overall", 0, "一年", "142/859"},
		{models.SectionReturnComparison, "overall", 0, "三年", ""},
		{models.SectionReturnTrends, "monthly", 0, "2024/09", "1.9"},
		{models.SectionReturnTrends, "error", 0, "message", "scrape return_trends for VTI: table#stable3: table not found"},
	}
	for _, tt := range tests {
		r, ok := find(tt.section, tt.table, tt.row, tt.column)
		if !ok {
			t.Errorf("no record for %s/%s/%d/%s", tt.section, tt.table, tt.row, tt.column)
			continue
		}
		if r.Value != tt.want || r.Ticker != "VTI" {
			t.Errorf("%s/%s/%d/%s = %q, want %q", tt.section, tt.table, tt.row, tt.column, r.Value, tt.want)
		}
	}

	for _, r := range records {
		if r.Table == "top_holdings" || (r.Section == string(models.SectionHoldings) && r.Table == "by_sector") {
			t.Errorf("absent or empty table produced record %+v", r)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatCSV); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "ticker,section,table,row,column,value\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	var back []Record
	if err := gocsv.UnmarshalString(buf.String(), &back); err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(back) != len(Flatten(sampleReport())) {
		t.Errorf("got %d rows back, want %d", len(back), len(Flatten(sampleReport())))
	}
}

// ════════════════════════════════════════════════════════════════════
// Text
// ════════════════════════════════════════════════════════════════════

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatText); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"VTI",
		"Vanguard整體股市ETF",
		"2024-10-31 12:00:00",
		"BASIC INFO",
		"北美",
		"98.50%",
		"142/859",
		"(not available)",
		"table not found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q", want)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, sampleReport(), Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

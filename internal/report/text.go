package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

const absentCell = "-"

func writeText(w io.Writer, rep *models.ETFReport) error {
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := func(format string, args ...any) {
		fmt.Fprintf(tw, format, args...)
	}

	p("%s\n", line)
	p("  %s  %s\n", rep.Ticker, rep.BasicInfo.Name)
	p("  Fetched: %s\n", utils.FormatTimestamp(rep.FetchedAt))
	p("%s\n", line)

	section := func(title string, s models.Section) {
		p("\n  ■ %s\n", title)
		if msg, ok := rep.Errors[s]; ok {
			p("  ! %s\n", msg)
		}
	}

	// Basic info
	section("BASIC INFO", models.SectionBasicInfo)
	info := rep.BasicInfo.ByLabel()
	for _, label := range models.BasicInfoLabels {
		p("    %s\t%s\n", label, orDash(info[label]))
	}

	// Holdings
	section("HOLDINGS", models.SectionHoldings)
	allocation := func(title string, rows models.RowSet[models.AllocationRow]) {
		p("    [%s]\n", title)
		if !rows.Present {
			p("    (not available)\n")
			return
		}
		p("    Name\tAmount (10k USD)\tWeight\n")
		for _, r := range rows.Rows {
			p("    %s\t%s\t%s\n", r.Name, utils.FormatOptional(r.Amount), utils.FormatPct(r.WeightPct))
		}
	}
	allocation("By region", rep.Holdings.ByRegion)
	allocation("By sector", rep.Holdings.BySector)
	p("    [Top holdings]\n")
	if top := rep.Holdings.TopHoldings; top.Present {
		p("    Name\tWeight\tShares\n")
		for _, h := range top.Rows {
			p("    %s\t%s\t%s\n", h.Name, utils.FormatPct(h.WeightPct), utils.FormatOptional(h.Shares))
		}
	} else {
		p("    (not available)\n")
	}

	// Risk
	section("RISK ANALYSIS", models.SectionRiskAnalysis)
	names := make([]string, 0, len(rep.RiskAnalysis))
	for name := range rep.RiskAnalysis {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		p("    Metric\tDate\tValue\tRank\n")
	}
	for _, name := range names {
		m := rep.RiskAnalysis[name]
		rank := absentCell
		if m.Rank != nil && m.Total != nil {
			rank = fmt.Sprintf("%d/%d", *m.Rank, *m.Total)
		}
		p("    %s\t%s\t%s\t%s\n", m.Metric, orDash(m.Date.String()), utils.FormatPct(m.Value), rank)
	}

	// Comparison
	section("RETURN COMPARISON", models.SectionReturnComparison)
	comparison := func(title string, rows models.RowSet[models.ComparisonRow]) {
		p("    [%s]\n", title)
		if !rows.Present {
			p("    (not available)\n")
			return
		}
		for _, r := range rows.Rows {
			cells := make([]string, 0, len(r.Cells))
			for _, c := range r.Cells {
				cells = append(cells, c.Column+" "+orDash(c.Value.String()))
			}
			p("    %s\t%s\n", r.Item, strings.Join(cells, "\t"))
		}
	}
	comparison("Overall", rep.ReturnComparison.Overall)
	comparison("Monthly", rep.ReturnComparison.Monthly)

	// Trends
	section("RETURN TRENDS", models.SectionReturnTrends)
	trend := func(title string, rows models.RowSet[models.TrendRow]) {
		p("    [%s]\n", title)
		if !rows.Present {
			p("    (not available)\n")
			return
		}
		for i, r := range rows.Rows {
			if i == 0 {
				periods := make([]string, 0, len(r.Values))
				for _, v := range r.Values {
					periods = append(periods, v.Period)
				}
				p("    \t%s\n", strings.Join(periods, "\t"))
			}
			values := make([]string, 0, len(r.Values))
			for _, v := range r.Values {
				values = append(values, utils.FormatPct(v.Value))
			}
			p("    %s\t%s\n", r.Indicator, strings.Join(values, "\t"))
		}
	}
	trend("Monthly", rep.ReturnTrends.Monthly)
	trend("Quarterly", rep.ReturnTrends.Quarterly)
	trend("Yearly", rep.ReturnTrends.Yearly)

	p("\n%s\n", thinLine)
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return absentCell
	}
	return s
}

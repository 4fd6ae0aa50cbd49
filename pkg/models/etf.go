package models

import "time"

// Basic info labels as they appear on the MoneyDJ profile page.
const (
	LabelName                  = "ETF名稱"
	LabelExchangeCode          = "交易所代碼"
	LabelEnglishName           = "英文名稱"
	LabelIssuer                = "發行公司"
	LabelInceptionDate         = "成立日期"
	LabelFundSize              = "ETF規模"
	LabelVolume                = "成交量"
	LabelMarketPrice           = "ETF市價"
	LabelNAV                   = "ETF淨值"
	LabelPremiumDiscount       = "折溢價(%)"
	LabelDistributionFrequency = "配息頻率"
	LabelExpenseRatio          = "總管理費用(%)"
	LabelYield                 = "殖利率(%)"
	LabelAnnualizedStdDev      = "年化標準差(%)"
)

// BasicInfoLabels lists the basic info labels in page order.
var BasicInfoLabels = []string{
	LabelName,
	LabelExchangeCode,
	LabelEnglishName,
	LabelIssuer,
	LabelInceptionDate,
	LabelFundSize,
	LabelVolume,
	LabelMarketPrice,
	LabelNAV,
	LabelPremiumDiscount,
	LabelDistributionFrequency,
	LabelExpenseRatio,
	LabelYield,
	LabelAnnualizedStdDev,
}

// BasicInfo is the ETF profile. Every field is the trimmed cell text; a field
// missing from the page is the empty string.
type BasicInfo struct {
	Name                  string `json:"name"`
	ExchangeCode          string `json:"exchange_code"`
	EnglishName           string `json:"english_name"`
	Issuer                string `json:"issuer"`
	InceptionDate         string `json:"inception_date"`
	FundSize              string `json:"fund_size"`
	Volume                string `json:"volume"`
	MarketPrice           string `json:"market_price"`
	NAV                   string `json:"nav"`
	PremiumDiscount       string `json:"premium_discount_pct"`
	DistributionFrequency string `json:"distribution_frequency"`
	ExpenseRatio          string `json:"expense_ratio_pct"`
	Yield                 string `json:"yield_pct"`
	AnnualizedStdDev      string `json:"annualized_std_dev_pct"`
}

// ByLabel returns the profile keyed by the page labels.
func (b BasicInfo) ByLabel() map[string]string {
	return map[string]string{
		LabelName:                  b.Name,
		LabelExchangeCode:          b.ExchangeCode,
		LabelEnglishName:           b.EnglishName,
		LabelIssuer:                b.Issuer,
		LabelInceptionDate:         b.InceptionDate,
		LabelFundSize:              b.FundSize,
		LabelVolume:                b.Volume,
		LabelMarketPrice:           b.MarketPrice,
		LabelNAV:                   b.NAV,
		LabelPremiumDiscount:       b.PremiumDiscount,
		LabelDistributionFrequency: b.DistributionFrequency,
		LabelExpenseRatio:          b.ExpenseRatio,
		LabelYield:                 b.Yield,
		LabelAnnualizedStdDev:      b.AnnualizedStdDev,
	}
}

// IsEmpty reports whether no field was populated.
func (b BasicInfo) IsEmpty() bool {
	return b == BasicInfo{}
}

// AllocationRow is one row of the by-region or by-sector breakdown.
type AllocationRow struct {
	Name      string   `json:"name"`
	Amount    *float64 `json:"amount_10k_usd"` // ten-thousand USD units
	WeightPct *float64 `json:"weight_pct"`
}

// TopHolding is one row of the holdings detail table.
type TopHolding struct {
	Name      string   `json:"name"`
	WeightPct *float64 `json:"weight_pct"`
	Shares    *float64 `json:"shares"`
}

// Holdings groups the three optional holdings tables.
type Holdings struct {
	ByRegion    RowSet[AllocationRow] `json:"holdings_by_region"`
	BySector    RowSet[AllocationRow] `json:"holdings_by_sector"`
	TopHoldings RowSet[TopHolding]    `json:"top_holdings"`
}

// RiskMetric is one row of the risk analysis table, e.g. tracking error.
type RiskMetric struct {
	Metric string   `json:"metric"`
	Date   Date     `json:"date"`
	Value  *float64 `json:"value_pct"`
	Rank   *int     `json:"rank"`
	Total  *int     `json:"total"`
}

// RiskAnalysis maps metric name to its record.
type RiskAnalysis map[string]RiskMetric

// ComparisonCell is one column of a return comparison row. Value is a number,
// a literal "rank/total" text, or absent.
type ComparisonCell struct {
	Column string `json:"column"`
	Value  Value  `json:"value"`
}

// ComparisonRow is one item of a return comparison table.
type ComparisonRow struct {
	Item  string           `json:"item"`
	Cells []ComparisonCell `json:"cells"`
}

// Cell returns the value under the given column header.
func (r ComparisonRow) Cell(column string) (Value, bool) {
	for _, c := range r.Cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return Absent(), false
}

// ReturnComparison holds the overall and monthly comparison tables.
type ReturnComparison struct {
	Overall RowSet[ComparisonRow] `json:"comparison"`
	Monthly RowSet[ComparisonRow] `json:"monthly"`
}

// PeriodReturn is one period column of a return trend row.
type PeriodReturn struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value_pct"`
}

// TrendRow is one indicator of a return trend table.
type TrendRow struct {
	Indicator string         `json:"indicator"`
	Values    []PeriodReturn `json:"values"`
}

// Period returns the value for a period header.
func (r TrendRow) Period(period string) (*float64, bool) {
	for _, v := range r.Values {
		if v.Period == period {
			return v.Value, true
		}
	}
	return nil, false
}

// ReturnTrends holds the monthly, quarterly and yearly return tables.
type ReturnTrends struct {
	Monthly   RowSet[TrendRow] `json:"monthly_return"`
	Quarterly RowSet[TrendRow] `json:"quarterly_return"`
	Yearly    RowSet[TrendRow] `json:"yearly_return"`
}

// Section names the five parts of an ETFReport.
type Section string

const (
	SectionBasicInfo        Section = "basic_info"
	SectionHoldings         Section = "holdings"
	SectionRiskAnalysis     Section = "risk_analysis"
	SectionReturnComparison Section = "return_comparison"
	SectionReturnTrends     Section = "return_trends"
)

// AllSections returns the sections in aggregation order.
func AllSections() []Section {
	return []Section{
		SectionBasicInfo,
		SectionHoldings,
		SectionRiskAnalysis,
		SectionReturnComparison,
		SectionReturnTrends,
	}
}

// sectionAliases maps the short names used by the CLI and API.
var sectionAliases = map[string]Section{
	"basic":      SectionBasicInfo,
	"holdings":   SectionHoldings,
	"risk":       SectionRiskAnalysis,
	"comparison": SectionReturnComparison,
	"trends":     SectionReturnTrends,
}

// ParseSection accepts a full section name or its short alias.
func ParseSection(name string) (Section, bool) {
	if s, ok := sectionAliases[name]; ok {
		return s, true
	}
	for _, s := range AllSections() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// ETFReport is the composite result for one ticker. All five sections are
// always present; a section that could not be extracted is empty and its
// error is recorded in Errors.
type ETFReport struct {
	Ticker           string             `json:"ticker"`
	BasicInfo        BasicInfo          `json:"basic_info"`
	Holdings         Holdings           `json:"holdings"`
	RiskAnalysis     RiskAnalysis       `json:"risk_analysis"`
	ReturnComparison ReturnComparison   `json:"return_comparison"`
	ReturnTrends     ReturnTrends       `json:"return_trends"`
	Errors           map[Section]string `json:"errors,omitempty"`
	FetchedAt        time.Time          `json:"fetched_at"`
}

// Degraded reports whether any section failed.
func (r *ETFReport) Degraded() bool {
	return len(r.Errors) > 0
}

// NewsItem is an entry from the ETF news feed.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

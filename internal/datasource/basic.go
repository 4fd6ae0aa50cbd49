package datasource

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/coerce"
	"github.com/seenimoa/etfdj/internal/table"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

const basicInfoTable = "table#sTable"

// sourceVolume is the page label the volume is read from; the output uses
// models.LabelVolume.
const sourceVolume = "成交量(股)"

// GetBasicInfo fetches the ETF profile page.
func (c *Client) GetBasicInfo(ctx context.Context, ticker string) (models.BasicInfo, error) {
	symbol := utils.NormalizeTicker(ticker)
	doc, err := c.fetchDocument(ctx, models.SectionBasicInfo, symbol)
	if err != nil {
		return models.BasicInfo{}, err
	}
	info, ok := parseBasicInfo(doc)
	if !ok {
		return info, tableNotFound(models.SectionBasicInfo, symbol, basicInfoTable)
	}
	return info, nil
}

// parseBasicInfo reads the profile table. Each row holds one or two
// label/value pairs; a label that appears twice keeps its last value.
func parseBasicInfo(doc *goquery.Document) (models.BasicInfo, bool) {
	tbl := doc.Find(basicInfoTable).First()
	if tbl.Length() == 0 {
		return models.BasicInfo{}, false
	}

	fields := make(map[string]string)
	for _, row := range table.Rows(tbl, table.AllCells) {
		if len(row) < 2 {
			continue
		}
		if len(row) >= 4 {
			fields[row[2]] = row[3]
		}
		fields[row[0]] = row[1]
	}

	var info models.BasicInfo
	// sep cuts the value before an annotation; "" keeps the whole value.
	for _, f := range []struct {
		source string
		sep    string
		dst    *string
	}{
		{models.LabelName, "", &info.Name},
		{models.LabelExchangeCode, "", &info.ExchangeCode},
		{models.LabelEnglishName, "", &info.EnglishName},
		{models.LabelIssuer, "", &info.Issuer},
		{models.LabelInceptionDate, "（", &info.InceptionDate},
		{models.LabelFundSize, "(", &info.FundSize},
		{sourceVolume, "（", &info.Volume},
		{models.LabelMarketPrice, "", &info.MarketPrice},
		{models.LabelNAV, "", &info.NAV},
		{models.LabelPremiumDiscount, "(", &info.PremiumDiscount},
		{models.LabelDistributionFrequency, "", &info.DistributionFrequency},
		{models.LabelExpenseRatio, " ", &info.ExpenseRatio},
		{models.LabelYield, "（", &info.Yield},
		{models.LabelAnnualizedStdDev, "（", &info.AnnualizedStdDev},
	} {
		*f.dst = coerce.StripAnnotation(fields[f.source], f.sep)
	}
	return info, true
}

package datasource

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/etfdj/internal/table"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// Holdings tables are only rendered when the matching section title is.
const (
	holdingsTitle      = "div.eTitle"
	titleByRegion      = "依區域"
	titleBySector      = "依產業"
	titleTopHoldings   = "持股明細"
	regionTableID      = "#ctl00_ctl00_MainContent_MainContent_stable"
	sectorTableID      = "#ctl00_ctl00_MainContent_MainContent_stable2"
	topHoldingsTableID = "#ctl00_ctl00_MainContent_MainContent_stable3"
)

var allocationLayout = table.Layout{
	HeaderRows: 1,
	MinCols:    4,
	Columns: []table.Column{
		{Name: "name", Index: 1, Rule: table.String},
		{Name: "amount", Index: 2, Rule: table.Number},
		{Name: "weight", Index: 3, Rule: table.Percentage},
	},
}

var topHoldingsLayout = table.Layout{
	HeaderRows: 1,
	MinCols:    3,
	Columns: []table.Column{
		{Name: "name", Index: 0, Rule: table.String},
		{Name: "weight", Index: 1, Rule: table.Percentage},
		{Name: "shares", Index: 2, Rule: table.Number},
	},
}

// GetHoldings fetches the holdings page. Each of the three tables is absent
// unless its title and table are both on the page, so a missing table is not
// an error.
func (c *Client) GetHoldings(ctx context.Context, ticker string) (models.Holdings, error) {
	symbol := utils.NormalizeTicker(ticker)
	doc, err := c.fetchDocument(ctx, models.SectionHoldings, symbol)
	if err != nil {
		return emptyHoldings(), err
	}
	return parseHoldings(doc), nil
}

func emptyHoldings() models.Holdings {
	return models.Holdings{
		ByRegion:    models.AbsentRows[models.AllocationRow](),
		BySector:    models.AbsentRows[models.AllocationRow](),
		TopHoldings: models.AbsentRows[models.TopHolding](),
	}
}

func parseHoldings(doc *goquery.Document) models.Holdings {
	h := emptyHoldings()
	doc.Find(holdingsTitle).Each(func(_ int, s *goquery.Selection) {
		title := s.Text()
		switch {
		case strings.Contains(title, titleByRegion):
			if tbl := doc.Find(regionTableID).First(); tbl.Length() > 0 {
				h.ByRegion = models.PresentRows(allocationRows(tbl))
			}
		case strings.Contains(title, titleBySector):
			if tbl := doc.Find(sectorTableID).First(); tbl.Length() > 0 {
				h.BySector = models.PresentRows(allocationRows(tbl))
			}
		case strings.Contains(title, titleTopHoldings):
			if tbl := doc.Find(topHoldingsTableID).First(); tbl.Length() > 0 {
				h.TopHoldings = models.PresentRows(topHoldingRows(tbl))
			}
		}
	})
	return h
}

func allocationRows(tbl *goquery.Selection) []models.AllocationRow {
	recs := table.Project(table.Rows(tbl, table.DataCells), allocationLayout)
	rows := make([]models.AllocationRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, models.AllocationRow{
			Name:      r.Text("name"),
			Amount:    r.Float("amount"),
			WeightPct: r.Float("weight"),
		})
	}
	return rows
}

func topHoldingRows(tbl *goquery.Selection) []models.TopHolding {
	recs := table.Project(table.Rows(tbl, table.DataCells), topHoldingsLayout)
	rows := make([]models.TopHolding, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, models.TopHolding{
			Name:      r.Text("name"),
			WeightPct: r.Float("weight"),
			Shares:    r.Float("shares"),
		})
	}
	return rows
}

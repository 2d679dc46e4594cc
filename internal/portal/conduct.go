package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ConductStatus is one tally from the conduct summary table, like how many
// commendations or demerits a student has.
type ConductStatus struct {
	Type  string `json:"type"`
	Times uint16 `json:"times"`
}

// ConductDetail is one conduct record with its paperwork trail.
type ConductDetail struct {
	Type    string  `json:"type"`
	Start   string  `json:"start"`
	Signed  string  `json:"signed"`
	Reason  string  `json:"reason"`
	Execute string  `json:"execute"`
	Sold    *string `json:"sold"`
	Year    uint16  `json:"year"`
}

// ConductRecord is the parsed conduct page.
type ConductRecord struct {
	Status []ConductStatus `json:"status"`
	Detail []ConductDetail `json:"detail"`
}

// ExtractConduct parses the conduct page: the second-to-last table body
// holds the tallies, rows classed dataRow hold the individual records.
func ExtractConduct(doc *goquery.Document) *ConductRecord {
	record := &ConductRecord{
		Status: []ConductStatus{},
		Detail: []ConductDetail{},
	}

	tables := doc.Find("table > tbody")
	if tables.Length() >= 2 {
		summary := tables.Eq(tables.Length() - 2)
		summary.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			texts := make([]string, 0, cells.Length())
			cells.Each(func(j int, cell *goquery.Selection) {
				if j == 0 {
					return
				}
				texts = append(texts, cellText(cell))
			})

			for k := 1; k < len(texts); k += 2 {
				record.Status = append(record.Status, ConductStatus{
					Type:  texts[k-1],
					Times: uint16(parseUint(texts[k])),
				})
			}
		})
	}

	doc.Find("tr.dataRow").Each(func(_ int, row *goquery.Selection) {
		texts := make([]string, 0, 7)
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, cellText(cell))
		})
		if len(texts) < 7 {
			return
		}

		detail := ConductDetail{
			Type:    texts[0],
			Start:   texts[1],
			Signed:  texts[2],
			Reason:  texts[3],
			Execute: texts[4],
			Year:    uint16(parseUint(texts[6])),
		}
		// An nbsp-only cell means the record was never revoked.
		if sold := texts[5]; sold != " " && sold != "" {
			detail.Sold = &sold
		}
		record.Detail = append(record.Detail, detail)
	})

	return record
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

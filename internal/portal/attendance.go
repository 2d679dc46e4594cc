package portal

import (
	"github.com/PuerkitoBio/goquery"
)

// AttendanceStatus is one column of the attendance summary: an absence
// category and its total for the term.
type AttendanceStatus struct {
	Name  string `json:"name"`
	Value uint16 `json:"value"`
}

// AttendanceRecord is one school day. Data holds one entry per period,
// nil when the student was present.
type AttendanceRecord struct {
	Data []*string `json:"data"`
	Date string    `json:"date"`
	Week string    `json:"week"`
}

// AttendanceTotal carries the summary rows for both terms of the year.
type AttendanceTotal struct {
	TermUp   []AttendanceStatus `json:"termUp"`
	TermDown []AttendanceStatus `json:"termDown"`
}

// Attendance is the parsed attendance page.
type Attendance struct {
	Record []AttendanceRecord `json:"record"`
	Total  AttendanceTotal    `json:"total"`
}

// ExtractAttendance parses the attendance page. The summary table holds
// four data rows: category names and totals for the first term, then the
// same pair for the second. Rows whose first cell spans columns are
// section headers and are skipped.
func ExtractAttendance(doc *goquery.Document) *Attendance {
	att := &Attendance{
		Record: []AttendanceRecord{},
		Total: AttendanceTotal{
			TermUp:   []AttendanceStatus{},
			TermDown: []AttendanceStatus{},
		},
	}

	var summary [][]string
	doc.Find("table.si_12.collapse.padding2.spacing0").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		first := row.Find("td").First()
		if _, spans := first.Attr("colspan"); spans {
			return
		}
		texts := []string{}
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, cellText(cell))
		})
		summary = append(summary, texts)
	})

	if len(summary) >= 4 {
		for i := 0; i < len(summary[0]) && i < len(summary[1]); i++ {
			att.Total.TermUp = append(att.Total.TermUp, AttendanceStatus{
				Name:  summary[0][i],
				Value: uint16(parseUint(summary[1][i])),
			})
		}
		for i := 0; i < len(summary[2]) && i < len(summary[3]); i++ {
			att.Total.TermDown = append(att.Total.TermDown, AttendanceStatus{
				Name:  summary[2][i],
				Value: uint16(parseUint(summary[3][i])),
			})
		}
	}

	// The summary table carries the same padding and spacing classes, so
	// it has to be excluded here.
	doc.Find("table.padding2.spacing0:not(.collapse)").First().
		Find("tr:not(.td_03.si_12.le_05.top.center)").Each(func(_ int, row *goquery.Selection) {
		record := AttendanceRecord{Data: []*string{}}
		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			text := cellText(cell)
			switch i {
			case 0:
				record.Week = text
			case 1:
				record.Date = text
			case 2:
				// period header column, not a record
			default:
				if text != "" {
					record.Data = append(record.Data, &text)
				} else {
					record.Data = append(record.Data, nil)
				}
			}
		})
		att.Record = append(att.Record, record)
	})

	return att
}

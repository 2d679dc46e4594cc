package portal

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScoreOption is one entry of the exam dropdown on the score list page.
// Type 2 marks ongoing coursework grades, type 1 a regular exam.
type ScoreOption struct {
	Name   string `json:"name"`
	Year   uint8  `json:"year"`
	Term   uint8  `json:"term"`
	TestID string `json:"testID"`
	Times  uint8  `json:"times"`
	Type   uint8  `json:"type"`
}

const courseworkMarker = "平時成績"

// ExtractScoreOptions parses the exam dropdown. The first two options are
// the placeholder and the whole-semester entry, which the portal renders
// unconditionally, so they are skipped.
func ExtractScoreOptions(doc *goquery.Document) []ScoreOption {
	options := []ScoreOption{}

	doc.Find("#ddlExamList > option").Each(func(i int, s *goquery.Selection) {
		if i < 2 {
			return
		}

		value, _ := s.Attr("value")
		query := optionQuery(value)
		name := s.Text()
		testID := query.Get("number")

		options = append(options, ScoreOption{
			Name:   name,
			Year:   uint8(parseUint(query.Get("thisyear"))),
			Term:   uint8(parseUint(query.Get("thisterm"))),
			TestID: testID,
			Times:  uint8(parseUint(digitAt(testID, 3))),
			Type:   optionType(name),
		})
	})

	return options
}

func optionType(name string) uint8 {
	if strings.Contains(name, courseworkMarker) {
		return 2
	}
	return 1
}

// optionQuery parses the query string of an option value, which is a
// relative page link.
func optionQuery(value string) url.Values {
	u, err := url.Parse(value)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

// ScoreValue is one subject's result on a score page.
type ScoreValue struct {
	Name  string  `json:"name"`
	Score uint8   `json:"score"`
	GPA   float32 `json:"gpa"`
}

// ScoreExtra is a summary figure printed beside the subject table, like
// the class average or rank.
type ScoreExtra struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ScoreUnpass flags a failing subject. Type says whether the raw score or
// the GPA failed.
type ScoreUnpass struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ScoreDetail is everything extracted from one exam's score page.
type ScoreDetail struct {
	Data   []ScoreValue  `json:"data"`
	Extra  []ScoreExtra  `json:"extra"`
	Unpass []ScoreUnpass `json:"unpass"`
}

const scoreNotReadyMarker = "尚未開放"

// ScoreReady reports whether the portal has published the requested score
// page yet.
func ScoreReady(doc *goquery.Document) bool {
	html, err := doc.Html()
	if err != nil {
		return false
	}
	return !strings.Contains(html, scoreNotReadyMarker)
}

// ExtractScoreDetail parses a score page: the per-subject table, the
// summary figures, and the failing subjects. The portal marks a failing
// raw score with red inline styling and a failing GPA with an "unpass"
// class.
func ExtractScoreDetail(doc *goquery.Document) *ScoreDetail {
	detail := &ScoreDetail{
		Data:   []ScoreValue{},
		Extra:  []ScoreExtra{},
		Unpass: []ScoreUnpass{},
	}

	doc.Find("table[id=Table1] tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		name := strings.ReplaceAll(cells.Eq(0).Text(), " ", "")
		scoreSpan := cells.Eq(1).Find("span").First()
		gpaSpan := cells.Eq(2).Find("span").First()
		if scoreSpan.Length() == 0 || gpaSpan.Length() == 0 {
			return
		}

		detail.Data = append(detail.Data, ScoreValue{
			Name:  name,
			Score: uint8(parseUint(cleanScoreText(scoreSpan.Text()))),
			GPA:   parseFloat(cleanScoreText(gpaSpan.Text())),
		})

		if style, ok := scoreSpan.Attr("style"); ok && strings.Contains(style, "red") {
			detail.Unpass = append(detail.Unpass, ScoreUnpass{Type: "score", Name: name})
		}
		if gpaSpan.HasClass("unpass") {
			detail.Unpass = append(detail.Unpass, ScoreUnpass{Type: "gpa", Name: name})
		}
	})

	cells := doc.Find("table.scoreTable-inline.padding0.spacing2.center tr td")
	cells.Each(func(i int, cell *goquery.Selection) {
		if !cell.HasClass("score") || i == 0 {
			return
		}
		detail.Extra = append(detail.Extra, ScoreExtra{
			Type:  strings.ReplaceAll(cells.Eq(i-1).Text(), "：", ""),
			Value: cleanScoreText(cell.Text()),
		})
	})

	return detail
}

func cleanScoreText(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\r\n", "")
	return strings.ReplaceAll(s, "\n", "")
}

func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0
	}
	return float32(f)
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return n
}

func digitAt(s string, i int) string {
	if i >= len(s) {
		return ""
	}
	return s[i : i+1]
}

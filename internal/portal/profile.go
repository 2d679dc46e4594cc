package portal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrScrapeFailed reports a portal page that did not contain the expected
// markup.
var ErrScrapeFailed = errors.New("portal page has unexpected layout")

const base64ImageHead = "data:image/png;base64,"

// ShortProfile is the identity summary captured at login time and carried
// in the session credential.
type ShortProfile struct {
	ClassName    string `json:"className"`
	ClassNumber  string `json:"classNumber"`
	Gender       string `json:"gender"`
	SchoolNumber string `json:"schoolNumber"`
	UserName     string `json:"userName"`
}

// ProfileField is one name/value row of the full profile table.
type ProfileField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile is the full profile page: every table field plus the student
// photo inlined as a data URI.
type Profile struct {
	Data       []ProfileField `json:"data"`
	ProfileImg string         `json:"profileImg"`
}

// FetchShortProfile loads the class roster page and the identity fragment
// concurrently and assembles the short profile.
func (c *Client) FetchShortProfile(ctx context.Context, host, cookie string) (ShortProfile, error) {
	var (
		className string
		classErr  error
		fields    []string
		fieldsErr error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		className, classErr = c.fetchClassName(ctx, host, cookie)
	}()
	fields, fieldsErr = c.fetchIdentityFields(ctx, host, cookie)
	<-done

	if classErr != nil {
		return ShortProfile{}, classErr
	}
	if fieldsErr != nil {
		return ShortProfile{}, fieldsErr
	}

	return ShortProfile{
		ClassName:    className,
		ClassNumber:  fields[0],
		SchoolNumber: fields[1],
		UserName:     fields[2],
		Gender:       fields[3],
	}, nil
}

func (c *Client) fetchClassName(ctx context.Context, host, cookie string) (string, error) {
	resp, err := c.GetHTML(ctx, PageClassData.URL(host), cookie)
	if err != nil {
		return "", err
	}

	cell := resp.Doc.Find("td").First()
	if cell.Length() == 0 {
		return "", fmt.Errorf("%w: no class cell", ErrScrapeFailed)
	}

	text := strings.ReplaceAll(cell.Text(), " ", "")
	_, after, found := strings.Cut(text, "：")
	if !found {
		return "", fmt.Errorf("%w: class cell has no label", ErrScrapeFailed)
	}
	name, _, _ := strings.Cut(after, "\n")
	return name, nil
}

// fetchIdentityFields returns the four identity cells in portal order:
// class number, school number, user name, gender.
func (c *Client) fetchIdentityFields(ctx context.Context, host, cookie string) ([]string, error) {
	resp, err := c.GetHTML(ctx, PageProfileShort.URL(host), cookie)
	if err != nil {
		return nil, err
	}

	var fields []string
	resp.Doc.Find("#authirty1 > td").Each(func(_ int, s *goquery.Selection) {
		text := strings.ReplaceAll(s.Text(), " ", "")
		text = strings.ReplaceAll(text, "\n", "")
		fields = append(fields, text)
	})

	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: expected 4 identity cells, got %d", ErrScrapeFailed, len(fields))
	}
	return fields, nil
}

// ExtractProfileFields pulls the name/value rows out of the full profile
// table. Rows carrying a leading photo cell have that cell dropped before
// pairing.
func ExtractProfileFields(doc *goquery.Document) []ProfileField {
	var fields []ProfileField

	doc.Find(`table[class="le_04 padding2 spacing2"] tr`).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, cell.Text())
		})

		if len(texts) > 4 {
			texts = texts[1:]
		}

		for i := 0; i+1 < len(texts); i += 2 {
			fields = append(fields, ProfileField{
				Name:  cleanCellText(texts[i]),
				Value: cleanCellText(texts[i+1]),
			})
		}
	})

	return fields
}

func cleanCellText(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "　", "")
	s = strings.ReplaceAll(s, "\r\n", "")
	return strings.ReplaceAll(s, "\n", "")
}

// ProfileImageID extracts the photo identifier from the profile page's
// image link.
func ProfileImageID(doc *goquery.Document) (string, error) {
	src, ok := doc.Find("img").First().Attr("src")
	if !ok {
		return "", fmt.Errorf("%w: no profile image", ErrScrapeFailed)
	}

	src = strings.ReplaceAll(src, "../", "")
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: bad profile image link", ErrScrapeFailed)
	}

	id := u.Query().Get("id")
	if id == "" {
		return "", fmt.Errorf("%w: profile image link has no id", ErrScrapeFailed)
	}
	return id, nil
}

// FetchProfileImage downloads the student photo and encodes it as a PNG
// data URI.
func (c *Client) FetchProfileImage(ctx context.Context, host, cookie, id string) (string, error) {
	pageURL := host + PageProfileImage.Replace(map[string]string{"imgid": id})
	data, err := c.GetBytes(ctx, pageURL, cookie)
	if err != nil {
		return "", err
	}
	return base64ImageHead + base64.StdEncoding.EncodeToString(data), nil
}

package portal

import "github.com/PuerkitoBio/goquery"

const portalFingerprint = "欣河資訊"

// IsPortalPage reports whether doc looks like a page served by the school
// portal software, identified by its vendor keywords meta tag.
func IsPortalPage(doc *goquery.Document) bool {
	found := false
	doc.Find(`meta[name="keywords"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if content, ok := s.Attr("content"); ok && content == portalFingerprint {
			found = true
			return false
		}
		return true
	})
	return found
}

// SiteKey extracts the anti-forgery token the login form requires.
func SiteKey(doc *goquery.Document) (string, bool) {
	return doc.Find(`input[name="__RequestVerificationToken"]`).First().Attr("value")
}

// HasCaptcha reports whether the login page is serving a captcha image.
func HasCaptcha(doc *goquery.Document) bool {
	return doc.Find("img#imgvcode").Length() > 0
}

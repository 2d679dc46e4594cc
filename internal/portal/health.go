package portal

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const loggedOutMarker = "未登入"

// SessionAlive reports whether a portal page was rendered for a logged-in
// session. The portal replaces page content with a logged-out notice when
// the session cookie died server-side; a page without the inspected element
// at all is treated as alive, so layout changes degrade to trusting the
// upstream rather than locking everyone out. The marker has to appear as a
// whole text node, prose that merely mentions it does not count.
func SessionAlive(doc *goquery.Document) bool {
	sel := doc.Find("body > div").First()
	if sel.Length() == 0 {
		return true
	}
	for _, n := range sel.Nodes {
		if hasTextNode(n, loggedOutMarker) {
			return false
		}
	}
	return true
}

func hasTextNode(n *html.Node, text string) bool {
	if n.Type == html.TextNode && n.Data == text {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasTextNode(c, text) {
			return true
		}
	}
	return false
}

// Package portal talks to the legacy school portal: it issues upstream
// requests with relayed session cookies, scrapes the HTML pages the portal
// serves, and classifies whether a reply means the relayed session is still
// accepted.
//
// The portal is a classic ASP application. It never answers with structured
// status codes: login success is an HTTP redirect, session expiry is an
// HTTP 200 carrying a marker element, and everything interesting lives in
// page markup. Everything in this package exists to absorb that.
package portal

import (
	"fmt"
	"net/url"
	"strings"
)

// Page identifies a known portal page.
type Page int

const (
	PageHome Page = iota
	PageLogin
	PageLoginCaptcha
	PageScoreList
	PageScore
	PageProfile
	PageProfileImage
	PageProfileShort
	PageClassData
	PageRewardAndPunish
	PageLack
)

// Path returns the page path relative to the portal base URL. Some paths
// carry $placeholders$ filled in by Replace.
func (p Page) Path() string {
	switch p {
	case PageHome:
		return ""
	case PageLogin:
		return "login.asp"
	case PageLoginCaptcha:
		return "image/vcode.asp"
	case PageScoreList:
		return "selection_student/student_subjects_number.asp?action=open_window_frame"
	case PageScore:
		return "selection_student/student_subjects_number.asp?action=%A6U%A6%A1%A6%A8%C1Z&thisyear=$year$&thisterm=$term$&number=$testid$&exam_name=hlhs"
	case PageProfile:
		return "selection_student/fundamental.asp"
	case PageProfileImage:
		return "utility/file1.asp?q=x&id=$imgid$"
	case PageProfileShort:
		return "student/selection_look_over_data.asp?look_over=right_below&school_class="
	case PageClassData:
		return "student/selection_look_over_data.asp?look_over=right_top&school_class=&division="
	case PageLack:
		return "selection_student/absentation_skip_school.asp"
	case PageRewardAndPunish:
		return "selection_student/moralculture_%20bonuspenalty.asp"
	default:
		return ""
	}
}

// URL joins the page path onto a portal base URL (which always ends in /).
func (p Page) URL(host string) string {
	return host + p.Path()
}

// Replace fills $placeholder$ slots in the page path.
func (p Page) Replace(replacements map[string]string) string {
	path := p.Path()
	for match, value := range replacements {
		path = strings.ReplaceAll(path, "$"+match+"$", value)
	}
	return path
}

// NormalizeHost canonicalizes a caller-supplied host URL into the portal
// base path all further requests are issued against.
func NormalizeHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid host url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid host url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid host url: missing host")
	}
	return fmt.Sprintf("%s://%s/online/", u.Scheme, u.Host), nil
}

// SessionCookie extracts the bare session cookie from a Set-Cookie header
// value, dropping attributes like path and expiry. The result is opaque:
// it is stored in credentials and relayed verbatim, never parsed further.
func SessionCookie(setCookie string) string {
	cookie, _, _ := strings.Cut(setCookie, "; ")
	return cookie
}

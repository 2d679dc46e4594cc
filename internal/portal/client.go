package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnreachable reports a transport-level failure reaching the portal.
var ErrUnreachable = errors.New("portal unreachable")

// StatusError reports a portal reply outside the success and redirect
// ranges. Redirects are not errors here: the login flow depends on seeing
// them raw.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal returned status %d", e.Code)
}

// HTMLResponse is a fetched and parsed portal page.
type HTMLResponse struct {
	Doc        *goquery.Document
	StatusCode int
	Header     http.Header
}

// Client issues requests against the portal.
//
// The underlying http.Client never follows redirects: the portal signals a
// successful login with a redirect response, and following it would make
// success indistinguishable from being served the login page again.
type Client struct {
	http *http.Client
}

// NewClient creates a portal client.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a GET request, relaying cookie verbatim when non-empty.
// The caller owns the response body.
func (c *Client) Get(ctx context.Context, pageURL, cookie string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return c.do(req, cookie)
}

// PostForm issues a form-encoded POST request, relaying cookie verbatim.
// The caller owns the response body.
func (c *Client) PostForm(ctx context.Context, pageURL, cookie string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pageURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, cookie)
}

// GetHTML issues a GET request and parses the body as an HTML document.
func (c *Client) GetHTML(ctx context.Context, pageURL, cookie string) (*HTMLResponse, error) {
	resp, err := c.Get(ctx, pageURL, cookie)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot parse portal page: %w", err)
	}

	return &HTMLResponse{
		Doc:        doc,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}, nil
}

// GetBytes issues a GET request and returns the raw body, for binary
// resources like the captcha image.
func (c *Client) GetBytes(ctx context.Context, pageURL, cookie string) ([]byte, error) {
	resp, err := c.Get(ctx, pageURL, cookie)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return data, nil
}

func (c *Client) do(req *http.Request, cookie string) (*http.Response, error) {
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if !isSuccess(resp.StatusCode) && !isRedirect(resp.StatusCode) {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return resp, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func isRedirect(code int) bool {
	return code >= 300 && code < 400
}

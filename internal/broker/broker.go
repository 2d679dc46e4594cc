// Package broker implements the stateless session broker: the three-phase
// login handshake against the portal and the authenticated relay operations
// that ride on an issued session credential.
//
// The broker keeps no per-client state. Everything a request needs lives in
// its bearer credential; the broker only relays the cookie embedded there
// to the host embedded there, never to a caller-supplied one.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/portal"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

// Broker drives the handshake and the credentialed portal operations.
type Broker struct {
	client *portal.Client
	codec  *token.Codec
}

// New creates a broker around a portal client and a credential codec.
func New(client *portal.Client, codec *token.Codec) *Broker {
	return &Broker{client: client, codec: codec}
}

// LoginInfo is the outcome of host discovery: a signed handshake credential
// and whether the client must solve a captcha before logging in.
type LoginInfo struct {
	AuthToken   string `json:"authToken"`
	NeedCaptcha bool   `json:"need_captcha"`
}

// LoginResult is the outcome of a successful login: a signed session
// credential and the profile snapshot embedded in it.
type LoginResult struct {
	AuthToken string
	User      token.UserProfileShort
}

// Discover probes a caller-supplied host, confirms it serves the portal,
// and opens an anonymous upstream session for the login that follows.
//
// The upstream must hand out a session cookie on the first page load; the
// login form is only valid for the session that rendered it, so a missing
// cookie is as fatal as an unreachable host.
func (b *Broker) Discover(ctx context.Context, rawHost string) (*LoginInfo, error) {
	host, err := portal.NormalizeHost(rawHost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostInvalid, err)
	}

	resp, err := b.client.GetHTML(ctx, portal.PageHome.URL(host), "")
	if err != nil {
		var statusErr *portal.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: host answered 404", ErrHostInvalid)
		}
		return nil, classifyTransport(err)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if setCookie == "" {
		return nil, fmt.Errorf("%w: no session cookie offered", ErrUpstreamUnreachable)
	}
	cookie := portal.SessionCookie(setCookie)

	if !portal.IsPortalPage(resp.Doc) {
		logger.DebugCtx(ctx, "discovery rejected host", logger.Host(host))
		return nil, fmt.Errorf("%w: fingerprint not found", ErrHostInvalid)
	}

	siteKey, ok := portal.SiteKey(resp.Doc)
	if !ok {
		return nil, fmt.Errorf("%w: login form has no site key", ErrHostInvalid)
	}
	needCaptcha := portal.HasCaptcha(resp.Doc)

	signed, err := b.codec.SignHandshake(token.HandshakeClaims{
		Host:        host,
		SiteKey:     siteKey,
		Cookie:      cookie,
		NeedCaptcha: needCaptcha,
	})
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "handshake opened", logger.Host(host), "need_captcha", needCaptcha)
	return &LoginInfo{AuthToken: signed, NeedCaptcha: needCaptcha}, nil
}

// Captcha relays the captcha image for the handshake's upstream session.
func (b *Broker) Captcha(ctx context.Context, hs *token.HandshakeClaims) ([]byte, error) {
	data, err := b.client.GetBytes(ctx, portal.PageLoginCaptcha.URL(hs.Host), hs.Cookie)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return data, nil
}

// Login submits the credentials against the handshake's host and, when the
// portal accepts them, binds the user's profile into a session credential.
//
// The portal signals acceptance with a redirect; any other status means the
// login page was served again. Profile binding is not optional: a session
// credential is never issued with a partial profile.
func (b *Broker) Login(ctx context.Context, hs *token.HandshakeClaims, username, password, vcode string) (*LoginResult, error) {
	form := url.Values{
		"__RequestVerificationToken": {hs.SiteKey},
		"division":                   {"senior"},
		"Loginid":                    {username},
		"LoginPwd":                   {password},
		"Uid":                        {""},
		"vcode":                      {vcode},
	}

	resp, err := b.client.PostForm(ctx, portal.PageLogin.URL(hs.Host), hs.Cookie, form)
	if err != nil {
		return nil, classifyTransport(err)
	}
	resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		logger.DebugCtx(ctx, "login not accepted", logger.Host(hs.Host), logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: portal served status %d", ErrLoginRejected, resp.StatusCode)
	}

	user, err := b.client.FetchShortProfile(ctx, hs.Host, hs.Cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: profile binding failed: %v", ErrLoginRejected, err)
	}

	profile := token.UserProfileShort{
		ClassName:    user.ClassName,
		ClassNumber:  user.ClassNumber,
		Gender:       user.Gender,
		SchoolNumber: user.SchoolNumber,
		UserName:     user.UserName,
	}

	signed, err := b.codec.SignSession(token.SessionClaims{
		Host:   hs.Host,
		Cookie: hs.Cookie,
		User:   profile,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "login succeeded", logger.Host(hs.Host))
	return &LoginResult{AuthToken: signed, User: profile}, nil
}

func classifyTransport(err error) error {
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %d", ErrUpstreamBadStatus, statusErr.Code)
	}
	if errors.Is(err, portal.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	return err
}

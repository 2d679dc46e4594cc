// Package token issues and verifies the signed bearer credentials that stand
// in for server-side session state.
//
// Two credential shapes exist: a handshake credential issued after host
// discovery but before login, and a session credential issued after a
// successful login. Both are self-contained; verification consults nothing
// but the signature and the embedded expiry.
package token

import "github.com/golang-jwt/jwt/v5"

// Kind discriminates the credential shape inside the signed claims. A token
// of the wrong kind for an endpoint fails verification; the two shapes are
// never interchangeable.
type Kind string

const (
	// KindHandshake is a phase-1 credential: it proves the client is
	// mid-handshake with a specific upstream session, and carries no identity.
	KindHandshake Kind = "handshake"

	// KindSession is a phase-2 credential: the authenticated bearer
	// credential used by every non-login endpoint.
	KindSession Kind = "session"
)

// UserProfileShort is the cached profile snapshot embedded in a session
// credential. Field names match the JSON the mobile clients expect.
type UserProfileShort struct {
	ClassName    string `json:"className"`
	ClassNumber  string `json:"classNumber"`
	Gender       string `json:"gender"`
	SchoolNumber string `json:"schoolNumber"`
	UserName     string `json:"userName"`
}

// HandshakeClaims is the phase-1 credential issued after host discovery.
//
// The cookie and site key are opaque to the broker: they are relayed
// verbatim back to the host recorded here, never parsed and never sent
// anywhere else.
type HandshakeClaims struct {
	jwt.RegisteredClaims

	Kind        Kind   `json:"kind"`
	Host        string `json:"host"`
	SiteKey     string `json:"site_key"`
	Cookie      string `json:"cookie"`
	NeedCaptcha bool   `json:"need_captcha"`
}

// SessionClaims is the phase-2 credential issued after a successful login.
type SessionClaims struct {
	jwt.RegisteredClaims

	Kind   Kind             `json:"kind"`
	Host   string           `json:"host"`
	Cookie string           `json:"cookie"`
	User   UserProfileShort `json:"user_data"`
}

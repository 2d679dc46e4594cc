package broker

import "errors"

// Classified failures. Each is constructed once at its detection point and
// carried unchanged to the API boundary, which owns the HTTP mapping.
var (
	// ErrMissingCredential means the request carried no bearer token at all.
	ErrMissingCredential = errors.New("missing credential")

	// ErrMalformedCredential covers bad signatures, corrupt tokens and
	// credentials of the wrong shape for the endpoint.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrExpiredCredential means the signature checked out but the
	// credential's lifetime has elapsed.
	ErrExpiredCredential = errors.New("expired credential")

	// ErrHostInvalid means the probed host answered but is not the portal:
	// wrong fingerprint, missing login form, or a 404.
	ErrHostInvalid = errors.New("not a valid host")

	// ErrUpstreamUnreachable is a transport-level failure reaching the
	// portal.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamBadStatus means the portal answered outside the success
	// and redirect ranges.
	ErrUpstreamBadStatus = errors.New("upstream returned bad status")

	// ErrSessionExpiredUpstream means the portal served the logged-out
	// notice for a cookie we relayed.
	ErrSessionExpiredUpstream = errors.New("upstream session expired")

	// ErrLoginRejected means the login submission did not produce a
	// redirect, or the profile binding that follows it failed.
	ErrLoginRejected = errors.New("login rejected")

	// ErrScoreNotReady means the portal has not published the requested
	// score page yet.
	ErrScoreNotReady = errors.New("score data not published")
)

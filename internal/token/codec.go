package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/keyring"
)

// Verification errors. Anything that is not an expiry is reported as an
// invalid token: bad signature, corrupt structure, and wrong credential kind
// are indistinguishable to callers on purpose.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Codec signs and verifies both credential shapes with one keypair.
//
// Expiry is always iat + the configured TTL for the shape, and is evaluated
// only after the signature has been verified: a tampered token is invalid
// even when its expiry has also elapsed.
type Codec struct {
	keys         *keyring.KeyPair
	handshakeTTL time.Duration
	sessionTTL   time.Duration
}

// NewCodec creates a codec bound to the given keypair and credential TTLs.
func NewCodec(keys *keyring.KeyPair, handshakeTTL, sessionTTL time.Duration) *Codec {
	return &Codec{
		keys:         keys,
		handshakeTTL: handshakeTTL,
		sessionTTL:   sessionTTL,
	}
}

// SignHandshake stamps kind and lifetime onto the claims and signs them.
func (c *Codec) SignHandshake(claims HandshakeClaims) (string, error) {
	claims.Kind = KindHandshake
	claims.RegisteredClaims = stamp(c.handshakeTTL)
	return c.sign(claims)
}

// SignSession stamps kind and lifetime onto the claims and signs them.
func (c *Codec) SignSession(claims SessionClaims) (string, error) {
	claims.Kind = KindSession
	claims.RegisteredClaims = stamp(c.sessionTTL)
	return c.sign(claims)
}

// VerifyHandshake verifies a token and decodes it as a handshake credential.
func (c *Codec) VerifyHandshake(tokenString string) (*HandshakeClaims, error) {
	var claims HandshakeClaims
	if err := c.verify(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindHandshake {
		return nil, fmt.Errorf("%w: not a handshake credential", ErrInvalidToken)
	}
	return &claims, nil
}

// VerifySession verifies a token and decodes it as a session credential.
func (c *Codec) VerifySession(tokenString string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := c.verify(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindSession {
		return nil, fmt.Errorf("%w: not a session credential", ErrInvalidToken)
	}
	return &claims, nil
}

func stamp(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(c.keys.Method(), claims)
	signed, err := tok.SignedString(c.keys.Private())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) verify(tokenString string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.keys.Public(), nil
	}, jwt.WithValidMethods([]string{c.keys.Method().Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}

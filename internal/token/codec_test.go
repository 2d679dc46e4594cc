package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/keyring"
)

func newTestCodec(t *testing.T, handshakeTTL, sessionTTL time.Duration) *Codec {
	t.Helper()
	keys, err := keyring.Obtain(t.TempDir())
	require.NoError(t, err)
	return NewCodec(keys, handshakeTTL, sessionTTL)
}

// tamper flips the last character of the payload segment so the signature
// no longer matches.
func tamper(t *testing.T, tok string) string {
	t.Helper()
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	payload := parts[1]
	last := "A"
	if strings.HasSuffix(payload, "A") {
		last = "B"
	}
	parts[1] = payload[:len(payload)-1] + last
	return strings.Join(parts, ".")
}

func TestHandshakeRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute, time.Hour)

	signed, err := codec.SignHandshake(HandshakeClaims{
		Host:        "https://school.example.com/online/",
		SiteKey:     "csrf-token",
		Cookie:      "ASPSESSIONID=abc",
		NeedCaptcha: true,
	})
	require.NoError(t, err)

	claims, err := codec.VerifyHandshake(signed)
	require.NoError(t, err)

	assert.Equal(t, KindHandshake, claims.Kind)
	assert.Equal(t, "https://school.example.com/online/", claims.Host)
	assert.Equal(t, "csrf-token", claims.SiteKey)
	assert.Equal(t, "ASPSESSIONID=abc", claims.Cookie)
	assert.True(t, claims.NeedCaptcha)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestSessionRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute, time.Hour)

	signed, err := codec.SignSession(SessionClaims{
		Host:   "https://school.example.com/online/",
		Cookie: "ASPSESSIONID=abc",
		User: UserProfileShort{
			ClassName:    "三年甲班",
			ClassNumber:  "15",
			SchoolNumber: "110123",
			UserName:     "王小明",
			Gender:       "男",
		},
	})
	require.NoError(t, err)

	claims, err := codec.VerifySession(signed)
	require.NoError(t, err)

	assert.Equal(t, KindSession, claims.Kind)
	assert.Equal(t, "王小明", claims.User.UserName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejectsTampered(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute, time.Hour)

	signed, err := codec.SignHandshake(HandshakeClaims{Host: "https://a/online/"})
	require.NoError(t, err)

	_, err = codec.VerifyHandshake(tamper(t, signed))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute, time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.VerifyHandshake(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = codec.VerifySession(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	codec := newTestCodec(t, -time.Minute, -time.Minute)

	handshake, err := codec.SignHandshake(HandshakeClaims{Host: "https://a/online/"})
	require.NoError(t, err)
	_, err = codec.VerifyHandshake(handshake)
	assert.ErrorIs(t, err, ErrExpiredToken)

	session, err := codec.SignSession(SessionClaims{Host: "https://a/online/"})
	require.NoError(t, err)
	_, err = codec.VerifySession(session)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// An expired token that was also tampered with must read as invalid, not
// expired.
func TestTamperedExpiredIsInvalid(t *testing.T) {
	codec := newTestCodec(t, -time.Minute, -time.Minute)

	signed, err := codec.SignSession(SessionClaims{Host: "https://a/online/"})
	require.NoError(t, err)

	_, err = codec.VerifySession(tamper(t, signed))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrExpiredToken)
}

func TestShapeIsolation(t *testing.T) {
	codec := newTestCodec(t, 5*time.Minute, time.Hour)

	handshake, err := codec.SignHandshake(HandshakeClaims{Host: "https://a/online/"})
	require.NoError(t, err)
	session, err := codec.SignSession(SessionClaims{Host: "https://a/online/"})
	require.NoError(t, err)

	_, err = codec.VerifySession(handshake)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.VerifyHandshake(session)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	signer := newTestCodec(t, 5*time.Minute, time.Hour)
	verifier := newTestCodec(t, 5*time.Minute, time.Hour)

	signed, err := signer.SignSession(SessionClaims{Host: "https://a/online/"})
	require.NoError(t, err)

	_, err = verifier.VerifySession(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

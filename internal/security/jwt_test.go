package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(now time.Time) *SessionJWT {
	s := NewSessionJWT("s3cret", "cwrk-planet", "meet", 30*time.Second)
	s.now = func() time.Time { return now }
	return s
}

func TestSessionJWT_SignAndParse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestJWT(now)

	tok, err := s.Sign(42, time.Hour)
	require.NoError(t, err)

	claims, err := s.ParseAndValidate(tok)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestSessionJWT_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := newTestJWT(now).Sign(1, time.Minute)
	require.NoError(t, err)

	_, err = newTestJWT(now.Add(time.Minute + 10*time.Second)).ParseAndValidate(tok)
	assert.NoError(t, err, "inside clock skew")

	_, err = newTestJWT(now.Add(2 * time.Minute)).ParseAndValidate(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSessionJWT_Rejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestJWT(now)

	other := NewSessionJWT("other", "cwrk-planet", "meet", 0)
	other.now = s.now
	forged, err := other.Sign(1, time.Hour)
	require.NoError(t, err)
	_, err = s.ParseAndValidate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIss := NewSessionJWT("s3cret", "someone-else", "meet", 0)
	wrongIss.now = s.now
	tok, err := wrongIss.Sign(1, time.Hour)
	require.NoError(t, err)
	_, err = s.ParseAndValidate(tok)
	assert.ErrorIs(t, err, ErrInvalidIssuer)

	wrongAud := NewSessionJWT("s3cret", "cwrk-planet", "chat", 0)
	wrongAud.now = s.now
	tok, err = wrongAud.Sign(1, time.Hour)
	require.NoError(t, err)
	_, err = s.ParseAndValidate(tok)
	assert.ErrorIs(t, err, ErrInvalidAudience)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ParseAndValidate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ParseAndValidate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionClaims_UserID(t *testing.T) {
	_, err := (&SessionClaims{}).UserID()
	assert.ErrorIs(t, err, ErrInvalidSubject)

	c := &SessionClaims{StandardClaims: jwt.StandardClaims{Subject: "abc"}}
	_, err = c.UserID()
	assert.ErrorIs(t, err, ErrInvalidSubject)
}

func TestTokenHash(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		TokenHash("hello"))
	assert.NotEqual(t, TokenHash("a"), TokenHash("b"))
}

package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidSubject  = errors.New("invalid token subject")
)

// SessionJWT проверяет (и для dev/тестов выпускает) сессионные токены HS256.
type SessionJWT struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

func NewSessionJWT(secret, issuer, audience string, clockSkew time.Duration) *SessionJWT {
	return &SessionJWT{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

type SessionClaims struct {
	jwt.StandardClaims // Issuer, Audience, ExpiresAt, NotBefore, IssuedAt, Subject
}

// Sign выпускает JWT с sub=userID и exp=now+ttl.
func (s *SessionJWT) Sign(userID int64, ttl time.Duration) (string, error) {
	now := s.now()
	claims := SessionClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			Audience:  s.audience,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseAndValidate проверяет подпись, issuer/audience (если заданы) и сроки с допуском clockSkew.
func (s *SessionJWT) ParseAndValidate(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	// проверку времени делаем сами ниже, с учётом clockSkew
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return nil, ErrInvalidIssuer
	}
	if s.audience != "" && !claims.VerifyAudience(s.audience, true) {
		return nil, ErrInvalidAudience
	}

	now := s.now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-s.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(s.clockSkew)
	if claims.ExpiresAt == 0 || now.Before(nbf) || now.After(exp) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// UserID парсит sub.
func (c *SessionClaims) UserID() (int64, error) {
	if c == nil || c.Subject == "" {
		return 0, ErrInvalidSubject
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}

	return id, nil
}

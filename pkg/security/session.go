package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultSessionTTL is the lifetime of an issued session token.
const DefaultSessionTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("session token is invalid")

// SessionClaims carries the account id in the subject claim. IssuedAtMs
// keeps the issue time at millisecond precision; iat is whole seconds.
type SessionClaims struct {
	jwt.RegisteredClaims
	IssuedAtMs int64 `json:"iat_ms,omitempty"`
}

// UserID parses the subject back into an account id.
func (c *SessionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionIssuer signs and validates HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewSessionIssuer(secret string, ttl time.Duration, issuer string) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

// Issue signs a token for userID with iat=now and exp=now+ttl.
func (s *SessionIssuer) Issue(userID uuid.UUID, now time.Time) (token string, expiresAt time.Time, err error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt = issuedAt.Add(s.ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		IssuedAtMs: now.UnixMilli(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Wrap(err)
	}
	return token, expiresAt, nil
}

// Parse checks algorithm, signature, issuer and expiry against now.
func (s *SessionIssuer) Parse(token string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, oops.Code("SESSION_TOKEN_INVALID").Wrap(errors.Join(ErrInvalidToken, err))
	}
	if !parsed.Valid || claims.IssuedAt == nil {
		return nil, oops.Code("SESSION_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}
	return claims, nil
}

// ChangedAfter reports whether a password change at changedAt happened
// after the token was issued, compared in milliseconds. A token issued in
// the same millisecond as the change belongs to the new password.
func (c *SessionClaims) ChangedAfter(changedAt time.Time) bool {
	if c.IssuedAtMs > 0 {
		return changedAt.UnixMilli() > c.IssuedAtMs
	}
	if c.IssuedAt == nil {
		return true
	}
	return changedAt.Unix() > c.IssuedAt.Unix()
}

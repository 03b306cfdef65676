package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/tripbook/internal/model"
)

// ErrInvalidToken is returned by Verify for any token that must not be
// trusted: bad signature, unexpected algorithm, malformed claims or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an access token.  The subject carries the user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.  The secret is set
// once at construction and never changes for the lifetime of the manager.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	noExpiry bool
	now      func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithoutExpiry makes the manager issue tokens without an exp claim and
// accept tokens that lack one.  This reproduces the legacy behaviour of the
// first release and is insecure: a leaked token stays valid forever.
func WithoutExpiry() TokenOption {
	return func(tm *TokenManager) { tm.noExpiry = true }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a manager signing with secret.  Tokens expire after
// ttl unless WithoutExpiry is given.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(tm)
	}
	return tm
}

// TTL reports the validity window of issued tokens, zero when expiry is off.
func (tm *TokenManager) TTL() time.Duration {
	if tm.noExpiry {
		return 0
	}
	return tm.ttl
}

// Issue signs a token asserting subjectID and email.  Every token gets a
// random jti so two tokens issued in the same second still differ.
func (tm *TokenManager) Issue(subjectID, email string) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id required")
	}
	now := tm.now().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if !tm.noExpiry {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.ttl))
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity window of raw and returns the
// identity it asserts.  All failures wrap ErrInvalidToken.
func (tm *TokenManager) Verify(raw string) (model.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithIssuedAt(),
	}
	if !tm.noExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

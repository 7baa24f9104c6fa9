package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.  A refresh token is never
// accepted where an access token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenType is returned when a token of the wrong type is presented.
var ErrTokenType = errors.New("unexpected token type")

// Claims is the payload of both access and refresh tokens: the registered
// claims (sub, exp, iat, jti) plus the user's email and the token type.
type Claims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed JWT along with its UTC expiry.
type IssuedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a short-lived HS256 access token for a user.
func NewAccessToken(secret, userID, email string, ttl time.Duration) (IssuedToken, error) {
	return issue(secret, userID, email, TokenTypeAccess, ttl)
}

// NewRefreshToken signs a long-lived HS256 refresh token for a user.  Each
// call yields a distinct token because of the random jti, so a login in the
// same second as a previous one still supersedes it.
func NewRefreshToken(secret, userID, email string, ttl time.Duration) (IssuedToken, error) {
	return issue(secret, userID, email, TokenTypeRefresh, ttl)
}

func issue(secret, userID, email, typ string, ttl time.Duration) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Email: email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies signature, algorithm and expiry of raw and checks
// that it carries the wanted type and a subject.
func ParseToken(secret, raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != wantType {
		return nil, ErrTokenType
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// HashRefreshRaw returns the SHA‑256 hex digest of a refresh token.  Only
// the digest is persisted.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// EqualDigest compares two hex digests in constant time.
func EqualDigest(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

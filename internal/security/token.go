package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken indicates a token that failed parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the JWT claims carried by access tokens.
type AccessClaims struct {
	UserID       uint64   `json:"uid"`
	SessionToken string   `json:"sid"`
	Roles        []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewSessionToken returns a fresh opaque session token.
func NewSessionToken() string {
	return uuid.NewString()
}

// IssueAccessToken signs an access token bound to a session.
func IssueAccessToken(secret string, expiry time.Duration, userID uint64, sessionToken string, roles []string, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("security: issue token: empty secret")
	}
	claims := AccessClaims{
		UserID:       userID,
		SessionToken: sessionToken,
		Roles:        roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseAccessToken verifies a signed access token and returns its claims.
func ParseAccessToken(secret, signed string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, errParse := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 digest of an opaque token.
// Reset and verification tokens are stored hashed, never in plaintext.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/project/task-manager-api/internal/models"
)

var (
	// ErrTokenExpired is returned when the token is past its expiry claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for any other structural or cryptographic failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// tokenTTL is the lifetime of an issued session token.
const tokenTTL = 24 * time.Hour

// JWT issues and verifies stateless session tokens backed by symmetric HMAC.
// Tokens are never stored server-side; expiry and account deactivation are the
// only invalidation mechanisms.
type JWT struct {
	secretKey []byte
}

// NewJWT creates a new JWT manager with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return &JWT{secretKey: []byte(secretKey)}
}

// Issue creates a signed token whose subject is the user's ID, valid for 24 hours.
func (j *JWT) Issue(user *models.User) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	tokenString, err := t.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ExtractSubject verifies the token's signature and expiry and returns the user
// ID carried in the subject claim.
func (j *JWT) ExtractSubject(tokenString string) (uint64, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !t.Valid {
		return 0, ErrTokenInvalid
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, claims.Subject)
	}

	return userID, nil
}

// IsValid reports whether the token verifies and its subject matches the given
// user. Parse failures are treated as "not valid", never propagated.
func (j *JWT) IsValid(tokenString string, user *models.User) bool {
	userID, err := j.ExtractSubject(tokenString)
	if err != nil {
		return false
	}
	return userID == user.ID
}

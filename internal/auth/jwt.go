package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and verifies bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: "team-chat-service"}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the user.
func (m *TokenManager) Issue(userID int, username string) (string, error) {
	now := time.Now()
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify parses the token and returns the authenticated user id and username.
func (m *TokenManager) Verify(token string) (int, string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	userID, err := strconv.Atoi(c.Subject)
	if err != nil || userID == 0 {
		return 0, "", ErrInvalidToken
	}
	return userID, c.Username, nil
}

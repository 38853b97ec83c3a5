package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates short-lived access tokens from the refresh tokens
// that mint them. A refresh token is never accepted as an access token.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"

	issuer = "unionline"
)

var ErrWrongTokenType = errors.New("wrong token type")

// Claims is the payload inside every JWT token.
//
// Only the user id is trusted for authorization: role, pôles and mandates
// are reloaded from the database on every request.
type Claims struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is what login and refresh return.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Issuer signs and verifies tokens with one HMAC secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair creates a fresh access/refresh pair for a user.
func (i *Issuer) IssuePair(userID int64, email string) (Pair, error) {
	access, err := i.GenerateToken(userID, email, AccessToken)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.GenerateToken(userID, email, RefreshToken)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// GenerateToken creates a signed HS256 JWT. Every token carries a random
// jti so it can be revoked individually.
func (i *Issuer) GenerateToken(userID int64, email string, typ TokenType) (string, error) {
	now := i.now()
	ttl := i.accessTTL
	if typ == RefreshToken {
		ttl = i.refreshTTL
	}

	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry and type, and returns the claims.
// Only HMAC signatures are accepted, which rules out "none" and key
// confusion attacks.
func (i *Issuer) ParseToken(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// Remaining is how long the token stays valid; revocation entries expire
// after that.
func (i *Issuer) Remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(i.now())
	if d < 0 {
		return 0
	}
	return d
}

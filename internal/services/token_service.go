package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Wikid82/warden/internal/models"
)

var ErrInvalidToken = errors.New("invalid scope token")

// Scope names gating the API surface.
const (
	ScopeRead        = "pedm.read"
	ScopeLaunch      = "pedm.launch"
	ScopeLogRead     = "pedm.log.read"
	ScopePolicyRead  = "pedm.policy.read"
	ScopePolicyWrite = "pedm.policy.write"
)

// ScopeClaims are the bearer token claims: the caller's identity quadruple
// plus the named capabilities granted to it.
type ScopeClaims struct {
	jwt.RegisteredClaims
	Scopes      []string `json:"scopes"`
	AccountName string   `json:"account_name"`
	DomainName  string   `json:"domain_name"`
	AccountSid  string   `json:"account_sid"`
	DomainSid   string   `json:"domain_sid"`
}

// User reconstructs the caller identity from the claims.
func (c *ScopeClaims) User() models.User {
	return models.User{
		AccountName: c.AccountName,
		DomainName:  c.DomainName,
		AccountSid:  c.AccountSid,
		DomainSid:   c.DomainSid,
	}
}

// HasScope reports whether the token grants the named capability.
func (c *ScopeClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TokenService mints and verifies HS256 scope tokens.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Mint issues a token for the user with the given scopes and lifetime.
func (s *TokenService) Mint(user models.User, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ScopeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.AccountSid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes:      scopes,
		AccountName: user.AccountName,
		DomainName:  user.DomainName,
		AccountSid:  user.AccountSid,
		DomainSid:   user.DomainSid,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token signature and expiry and returns the claims.
func (s *TokenService) Parse(raw string) (*ScopeClaims, error) {
	claims := &ScopeClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AccountSid == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

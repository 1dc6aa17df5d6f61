package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrConfigRequired = errors.New("JWT config is required")
	ErrInvalidToken   = errors.New("invalid token")
)

// Claims binds a token to a user and to the session it was issued for
type Claims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Config represents JWT configuration. Access and refresh tokens are signed
// with different secrets so one can never be replayed as the other.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
	SigningMethod jwt.SigningMethod
}

// DefaultConfig returns default JWT configuration
func DefaultConfig(accessSecret, refreshSecret string) *Config {
	return &Config{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessExpiry:  1 * time.Hour,
		RefreshExpiry: 30 * 24 * time.Hour,
		Issuer:        "callboard-api",
		SigningMethod: jwt.SigningMethodHS256,
	}
}

// TokenPair is what a login or a refresh hands back to the client
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (cfg *Config) sign(uid, sid, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UID: uid,
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
			Subject:   uid,
		},
	}

	method := cfg.SigningMethod
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
}

// GenerateTokenPair generates both access and refresh tokens for a session
func GenerateTokenPair(uid, sid string, cfg *Config) (*TokenPair, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	access, err := cfg.sign(uid, sid, cfg.AccessSecret, cfg.AccessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := cfg.sign(uid, sid, cfg.RefreshSecret, cfg.RefreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccessToken validates and parses an access token
func ValidateAccessToken(tokenString string, cfg *Config) (*Claims, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	return validate(tokenString, cfg.AccessSecret)
}

// ValidateRefreshToken validates and parses a refresh token
func ValidateRefreshToken(tokenString string, cfg *Config) (*Claims, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	return validate(tokenString, cfg.RefreshSecret)
}

func validate(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" || claims.SID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

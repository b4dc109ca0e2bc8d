package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ecotrack"

// Claims bind a token to one demo session. They carry no user identity.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Service) Issue(sessionID string) (Token, error) {
	if sessionID == "" {
		return Token{}, errors.New("session id required")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Token: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// Validate returns the session id a token was issued for.
func (s *Service) Validate(token string) (string, error) {
	parsed, err := parseClaimsFn(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", errors.New("token invalid")
	}
	return claims.SessionID, nil
}

var parseClaimsFn = jwt.ParseWithClaims

package service

import (
	"errors"
	"fmt"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims carries the acting party. The subject is the party id and
// party_type must agree with the id prefix.
type sessionClaims struct {
	PartyType domain.PartyType `json:"party_type"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}
}

// Generate creates a signed session token for the actor.
func (s *JWTTokenService) Generate(actor domain.Actor) (string, time.Time, error) {
	if !actor.Type.Valid() || actor.ID == "" {
		return "", time.Time{}, fmt.Errorf("invalid actor %q/%q", actor.Type, actor.ID)
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := sessionClaims{
		PartyType: actor.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a session token, returning the actor.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	prefixed, ok := domain.PartyTypeOf(claims.Subject)
	if !ok || prefixed != claims.PartyType {
		return nil, fmt.Errorf("party type %q does not match subject %q", claims.PartyType, claims.Subject)
	}

	return &ports.TokenClaims{
		Actor: domain.Actor{Type: claims.PartyType, ID: claims.Subject},
	}, nil
}

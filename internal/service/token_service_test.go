package service

import (
	"testing"
	"time"

	"linkpay/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key-32-bytes-long!!", time.Hour, "linkpay")

	for _, actor := range []domain.Actor{domain.MerchantActor("MR00AB12"), domain.UserActor("UR00CD34")} {
		t.Run(string(actor.Type), func(t *testing.T) {
			token, expiresAt, err := svc.Generate(actor)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

			claims, err := svc.Validate(token)
			require.NoError(t, err)
			assert.Equal(t, actor, claims.Actor)
		})
	}
}

func TestJWTTokenService_GenerateInvalidActor(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, "linkpay")

	_, _, err := svc.Generate(domain.Actor{Type: "admin", ID: "X"})
	assert.Error(t, err)

	_, _, err = svc.Generate(domain.UserActor(""))
	assert.Error(t, err)
}

func TestJWTTokenService_Expired(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Minute, "linkpay")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.Generate(domain.UserActor("UR00CD34"))
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", time.Hour, "linkpay")
	svc2 := NewJWTTokenService("secret-2", time.Hour, "linkpay")

	token, _, err := svc1.Generate(domain.UserActor("UR00CD34"))
	require.NoError(t, err)

	_, err = svc2.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	other := NewJWTTokenService("secret", time.Hour, "someone-else")
	svc := NewJWTTokenService("secret", time.Hour, "linkpay")

	token, _, err := other.Generate(domain.UserActor("UR00CD34"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTTokenService_PartyTypeMismatch(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, "linkpay")

	claims := sessionClaims{
		PartyType: domain.PartyMerchant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "UR00CD34",
			Issuer:    "linkpay",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorContains(t, err, "does not match")
}

func TestJWTTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, "linkpay")

	claims := sessionClaims{
		PartyType: domain.PartyUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "UR00CD34",
			Issuer:    "linkpay",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, "linkpay")
	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}

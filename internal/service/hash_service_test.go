package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapArgon2 keeps hashing fast in tests.
var cheapArgon2 = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("SecureP@ssw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))

	match, err := svc.Verify("SecureP@ssw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestArgon2HashService_Pin(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	hash, err := svc.Hash("4321")
	require.NoError(t, err)

	match, err := svc.Verify("4321", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("1234", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_VerifiesAcrossParams(t *testing.T) {
	cheap := NewArgon2HashServiceWithParams(cheapArgon2)
	hash, err := cheap.Hash("pw")
	require.NoError(t, err)

	match, err := NewArgon2HashService().Verify("pw", hash)
	require.NoError(t, err)
	assert.True(t, match, "cost parameters are read from the encoded hash")
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	h1, err := svc.Hash("same")
	require.NoError(t, err)
	h2, err := svc.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_InvalidHash(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	tests := []struct {
		name string
		hash string
	}{
		{"too few parts", "$argon2id$v=19"},
		{"wrong algorithm", "$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify("x", tt.hash)
			assert.Error(t, err)
		})
	}
}

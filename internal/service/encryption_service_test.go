package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestEncryption(t *testing.T) *AESEncryptionService {
	t.Helper()
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	return svc
}

func TestAESEncryptionService_NewInvalidKey(t *testing.T) {
	_, err := NewAESEncryptionService("shortkey")
	assert.Error(t, err)

	_, err = NewAESEncryptionService("0123456789abcdef")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestAESEncryptionService_RoundTripPin(t *testing.T) {
	svc := newTestEncryption(t)

	ciphertext, err := svc.Encrypt("482913")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "482913")

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "482913", decrypted)
}

func TestAESEncryptionService_DifferentNonces(t *testing.T) {
	svc := newTestEncryption(t)

	c1, err := svc.Encrypt("1234")
	require.NoError(t, err)
	c2, err := svc.Encrypt("1234")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestAESEncryptionService_TamperedCiphertext(t *testing.T) {
	svc := newTestEncryption(t)

	ciphertext, err := svc.Encrypt("1234")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestAESEncryptionService_WrongKey(t *testing.T) {
	svc1 := newTestEncryption(t)
	svc2, err := NewAESEncryptionService("abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789")
	require.NoError(t, err)

	ciphertext, err := svc1.Encrypt("1234")
	require.NoError(t, err)

	_, err = svc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestAESEncryptionService_InvalidCiphertext(t *testing.T) {
	svc := newTestEncryption(t)

	_, err := svc.Decrypt("not base64 !!!")
	assert.Error(t, err)

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "too short")
}

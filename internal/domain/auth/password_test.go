package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	for _, pw := range []string{"secret", "correct horse battery staple", "пароль123", "      "} {
		hash, err := HashPassword(pw)
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(hash)
		require.NoError(t, err)
		assert.Len(t, raw, 48)

		assert.True(t, VerifyPassword(pw, hash), "password %q should verify", pw)
		assert.False(t, VerifyPassword(pw+"x", hash))
	}
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	a, err := HashPassword("secret1")
	require.NoError(t, err)
	b, err := HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword("secret1", a))
	assert.True(t, VerifyPassword("secret1", b))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{name: "empty", stored: ""},
		{name: "not base64", stored: "%%%not-base64%%%"},
		{name: "too short", stored: base64.StdEncoding.EncodeToString(make([]byte, 47))},
		{name: "too long", stored: base64.StdEncoding.EncodeToString(make([]byte, 49))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("secret", tt.stored))
		})
	}
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		wantValid bool
	}{
		{"too short", "aB1!", false},
		{"common word", "password", false},
		{"mixed and long", "Tr0ub4dor&3-horse", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckPasswordStrength(tt.password)
			assert.Equal(t, tt.wantValid, result.IsValid, "strength=%s score=%d", result.Strength, result.Score)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-admin-key")
	require.NoError(t, err)

	assert.True(t, IsBcryptHash(hash))
	assert.True(t, CheckPasswordHash("s3cret-admin-key", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, IsBcryptHash("s3cret-admin-key"))
}

func TestDeriveAESKey(t *testing.T) {
	a := DeriveAESKey("passphrase")
	b := DeriveAESKey("passphrase")
	c := DeriveAESKey("other")

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "abcd...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

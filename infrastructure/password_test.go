package infrastructure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	credential, err := HashPassword("longenough1")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("longenough1", credential))
	assert.False(t, VerifyPassword("longenough2", credential))
	assert.False(t, VerifyPassword("", credential))
}

func TestHashPassword_FreshSaltPerCall(t *testing.T) {
	first, err := HashPassword("samepassword")
	require.NoError(t, err)
	second, err := HashPassword("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("samepassword", first))
	assert.True(t, VerifyPassword("samepassword", second))
}

func TestHashPassword_Encoding(t *testing.T) {
	credential, err := HashPassword("whatever1")
	require.NoError(t, err)

	parts := strings.Split(credential, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], saltLength*2)
	assert.Len(t, parts[1], keyLength*2)
}

func TestVerifyPassword_FailsClosed(t *testing.T) {
	tests := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"bad salt hex", "zz:deadbeef"},
		{"bad digest hex", "deadbeef:zz"},
		{"short digest", "deadbeef:deadbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("anything", tt.credential))
		})
	}
}

package security

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	plaintext, digest, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, TokenBytes*2)
	_, err = hex.DecodeString(plaintext)
	assert.NoError(t, err, "plaintext must be hex")

	assert.Len(t, digest, 64)
	assert.NotEqual(t, plaintext, digest)
	assert.Equal(t, digest, DigestOf(plaintext))
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		plaintext, _, err := GenerateToken()
		require.NoError(t, err)
		require.False(t, seen[plaintext], "duplicate token")
		seen[plaintext] = true
	}
}

func TestDigestOf_KnownValue(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		DigestOf("abc"),
	)
}

func TestMatchDigest(t *testing.T) {
	plaintext, digest, err := GenerateToken()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		digest    string
		want      bool
	}{
		{name: "match", plaintext: plaintext, digest: digest, want: true},
		{name: "wrong token", plaintext: plaintext + "0", digest: digest, want: false},
		{name: "empty token", plaintext: "", digest: digest, want: false},
		{name: "empty digest", plaintext: plaintext, digest: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchDigest(tt.plaintext, tt.digest))
		})
	}
}

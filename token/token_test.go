package token

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	sum := sha1.Sum([]byte("s3cretowner-13"))
	want := "aa-verify=" + hex.EncodeToString(sum[:])

	got := Derive("s3cret", "owner-1", 3)
	assert.Equal(t, want, got)
	assert.Equal(t, got, Derive("s3cret", "owner-1", 3), "derivation must be deterministic")
	assert.True(t, strings.HasPrefix(got, Prefix))
	assert.Len(t, got, len(Prefix)+40)
	assert.Equal(t, strings.ToLower(got), got, "hex output is lowercase")
}

func TestDeriveInputSensitivity(t *testing.T) {
	base := Derive("secret", "owner", 1)

	tests := []struct {
		name   string
		secret string
		owner  string
		count  int
	}{
		{"secret changed", "secreT", "owner", 1},
		{"owner changed", "secret", "Owner", 1},
		{"count changed", "secret", "owner", 2},
		{"empty secret", "", "owner", 1},
		{"zero count", "secret", "owner", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, Derive(tt.secret, tt.owner, tt.count))
		})
	}
}

func TestMatches(t *testing.T) {
	expected := Derive("secret", "owner", 1)

	tests := []struct {
		name      string
		published string
		want      bool
	}{
		{"exact", expected, true},
		{"surrounding whitespace", "  " + expected + "\t", true},
		{"uppercase hex", strings.ToUpper(expected), false},
		{"truncated", expected[:len(expected)-1], false},
		{"embedded", "x" + expected, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Matches(tt.published, expected))
		})
	}

	assert.False(t, Matches("", ""), "empty expectation never matches")
}

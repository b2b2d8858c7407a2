package qacache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "How Do I Change The Oil", "how do i change the oil"},
		{"trims whitespace", "  check tire pressure  ", "check tire pressure"},
		{"strips question mark", "How do I change the oil?", "how do i change the oil"},
		{"strips periods", "First. Then. Done.", "first then done"},
		{"empty input", "", ""},
		{"only punctuation", "?.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestFingerprintEqualForEqualNormalizations(t *testing.T) {
	pairs := [][2]string{
		{"How do I change the oil?", "how do i change the oil"},
		{"  Check tire pressure.  ", "check tire pressure"},
		{"START THE ENGINE", "start the engine?"},
	}

	for _, pair := range pairs {
		assert.Equal(t, Normalize(pair[0]), Normalize(pair[1]))
		assert.Equal(t, Fingerprint(pair[0]), Fingerprint(pair[1]))
	}
}

func TestFingerprintStableAndDistinct(t *testing.T) {
	fp := Fingerprint("How do I change the oil?")

	// sha256 hex digest, stable across calls.
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("How do I change the oil?"))

	assert.NotEqual(t, fp, Fingerprint("How do I change the air filter?"))
}

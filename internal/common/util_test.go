package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandByteArray(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"salt sized", 16},
		{"key sized", 32},
		{"empty", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := GenerateRandByteArray(tt.size)
			require.NotNil(t, b)
			assert.Len(t, b, tt.size)
		})
	}
}

func TestGenerateRandByteArray_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 8)
	for range 8 {
		seen[string(GenerateRandByteArray(32))] = struct{}{}
	}
	assert.Len(t, seen, 8)
}

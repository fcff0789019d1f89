package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		defaultUnit string
		want        int
	}{
		{"hours and minutes", "1h30m", "m", 5400},
		{"days and hours", "2d3h", "m", 2*86400 + 3*3600},
		{"spaced segments", "1h 30m", "m", 5400},
		{"bare number uses default unit", "30", "m", 1800},
		{"bare number seconds", "45", "s", 45},
		{"spanish words", "2 dias", "m", 2 * 86400},
		{"accented spanish", "3 días", "m", 3 * 86400},
		{"decimal comma", "1,5h", "m", 5400},
		{"decimal dot", "0.5h", "m", 1800},
		{"unknown unit falls back to default", "10xyz", "m", 600},
		{"garbage", "xyz", "m", 0},
		{"empty", "", "m", 0},
		{"whitespace", "   ", "m", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeconds(tt.value, tt.defaultUnit))
		})
	}
}

func TestSecondsFromAny(t *testing.T) {
	assert.Equal(t, 0, SecondsFromAny(nil, "m"))
	assert.Equal(t, 1800, SecondsFromAny(30, "m"))
	assert.Equal(t, 90, SecondsFromAny(1.5, "m"))
	assert.Equal(t, 5400, SecondsFromAny("1h30m", "m"))
	assert.Equal(t, 0, SecondsFromAny(struct{}{}, "m"))
}

func TestParseSecondsIsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, 5400, ParseSeconds("1h30m", "m"))
	}
}

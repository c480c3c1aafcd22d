package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountZeroCrossings(t *testing.T) {
	tests := []struct {
		name   string
		signal []int
		want   int
	}{
		{"all positive", []int{1, 2, 3, 4, 5}, 0},
		{"alternating", []int{1, -1, 1, -1}, 3},
		{"zero is non-negative", []int{0, -1, 0, 1}, 2},
		{"empty", []int{}, 0},
		{"single sample", []int{5}, 0},
		{"all negative", []int{-3, -2, -1}, 0},
		{"all zeros", []int{0, 0, 0}, 0},
		{"single crossing", []int{3, 2, -5}, 1},
		{"negative to zero", []int{-1, 0}, 1},
		{"nil signal", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountZeroCrossings(tt.signal))
		})
	}
}

package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected float64
	}{
		{
			name:     "median of empty slice",
			input:    []float64{},
			expected: 0,
		},
		{
			name:     "median of nil slice",
			input:    nil,
			expected: 0,
		},
		{
			name:     "median of single element",
			input:    []float64{5.0},
			expected: 5.0,
		},
		{
			name:     "median of odd length slice",
			input:    []float64{1, 3, 5, 7, 9},
			expected: 5.0,
		},
		{
			name:     "median of even length slice",
			input:    []float64{1, 2, 3, 4},
			expected: 2.5,
		},
		{
			name:     "median of unsorted slice",
			input:    []float64{9, 1, 7, 3, 5},
			expected: 5.0,
		},
		{
			name:     "median resists outliers",
			input:    []float64{1, 2, 3, 1000},
			expected: 2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := median(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	input := []float64{3, 1, 2}
	median(input)
	assert.Equal(t, []float64{3, 1, 2}, input)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		p        float64
		expected float64
	}{
		{
			name:     "percentile of empty slice",
			input:    []float64{},
			p:        90,
			expected: 0,
		},
		{
			name:     "90th percentile of ten values",
			input:    []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			p:        90,
			expected: 90,
		},
		{
			name:     "90th percentile of single value",
			input:    []float64{42},
			p:        90,
			expected: 42,
		},
		{
			name:     "0th percentile returns minimum",
			input:    []float64{5, 1, 9},
			p:        0,
			expected: 1,
		},
		{
			name:     "100th percentile returns maximum",
			input:    []float64{5, 1, 9},
			p:        100,
			expected: 9,
		},
		{
			name:     "50th percentile nearest rank",
			input:    []float64{1, 2, 3, 4},
			p:        50,
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := percentile(tt.input, tt.p)
			assert.Equal(t, tt.expected, result)
		})
	}
}

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "", 0.0},
		{"abc", "xyz", 0.0},
		{"util.py", "utils.py", 14.0 / 15.0},
		{"b.py", "c.py", 0.75},
		{"kitten", "sitting", 8.0 / 13.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Ratio(tt.a, tt.b), Ratio(tt.b, tt.a), 1e-9, "ratio must be symmetric")
		})
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"obj.run(x)", "obj.run(y)", 1},
		{"héllo", "hello", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, Distance(tt.a, tt.b), Distance(tt.b, tt.a))
		})
	}
}

func TestCompareIdentical(t *testing.T) {
	t.Parallel()

	ratio, dist := Compare("def f(x):\n    return x", "def f(x):\n    return x")
	assert.Equal(t, 1.0, ratio)
	assert.Equal(t, 0, dist)

	ratio, dist = Compare("def f(x):", "def f(y):")
	assert.Less(t, ratio, 1.0)
	assert.Positive(t, dist)
}

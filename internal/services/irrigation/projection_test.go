package irrigation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyImpact(t *testing.T) {
	points := WeeklyImpact(1.5, rand.New(rand.NewSource(42)))

	require.Len(t, points, 7)
	for i, p := range points {
		assert.Equal(t, "Day "+string(rune('1'+i)), p.Name)
		assert.Equal(t, 105000.0, p.Fixed)
		assert.GreaterOrEqual(t, p.AI, math.Floor(0.6*p.Fixed))
		assert.LessOrEqual(t, p.AI, math.Ceil(0.8*p.Fixed))
	}
}

func TestWeeklyImpact_SeededIsReproducible(t *testing.T) {
	a := WeeklyImpact(2, rand.New(rand.NewSource(7)))
	b := WeeklyImpact(2, rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

func TestWeeklyImpact_GlobalSource(t *testing.T) {
	assert.Len(t, WeeklyImpact(1, nil), 7)
}

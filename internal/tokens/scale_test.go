package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestScaleTime_TruncatesRatherThanRounds matches spec.md §8: factor=0.7 over
// a 100-second span must yield 69, not 70 (69.9999988079071 truncates).
func TestScaleTime_TruncatesRatherThanRounds(t *testing.T) {
	now := time.Unix(0, 0).UTC()
	later := now.Add(100 * time.Second)

	got := ScaleTime(now, later, 0.7)

	assert.Equal(t, now.Add(69*time.Second), got)
	assert.NotEqual(t, now.Add(70*time.Second), got)
}

func TestScaleTime_FactorZeroReturnsNow(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	later := now.Add(time.Hour)
	assert.Equal(t, now, ScaleTime(now, later, 0))
}

func TestScaleTime_FactorOneReturnsLater(t *testing.T) {
	now := time.Unix(1000, 0).UTC()
	later := now.Add(37 * time.Minute)
	assert.Equal(t, later, ScaleTime(now, later, 1))
}

// TestCalcSleep_BoundaryCases matches spec.md §8's three calc_sleep cases:
// already-due collapses to 100ms, an in-range gap passes through unchanged,
// an over-cap gap clamps to the cap.
func TestCalcSleep_BoundaryCases(t *testing.T) {
	now := time.Unix(0, 0).UTC()
	cap := 5 * time.Second

	t.Run("already due", func(t *testing.T) {
		next := now.Add(-1 * time.Second)
		assert.Equal(t, 100*time.Millisecond, CalcSleep(now, next, cap))
	})

	t.Run("due exactly now", func(t *testing.T) {
		assert.Equal(t, 100*time.Millisecond, CalcSleep(now, now, cap))
	})

	t.Run("within cap", func(t *testing.T) {
		next := now.Add(2 * time.Second)
		assert.Equal(t, 2*time.Second, CalcSleep(now, next, cap))
	})

	t.Run("exceeds cap", func(t *testing.T) {
		next := now.Add(30 * time.Second)
		assert.Equal(t, cap, CalcSleep(now, next, cap))
	})
}

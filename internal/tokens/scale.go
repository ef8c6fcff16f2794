package tokens

import "time"

// ScaleTime implements scale_time(now, later, factor) = now + floor((later -
// now) * factor) from spec.md §4.4. factor is carried as float32, matching
// the original's `factor: f32` (original_source/src/client/implementation/
// manager_loop/mod.rs) — widening 0.7f32 to float64 before multiplying
// yields 69.9999988079071, not 70.0, which is what makes factor=0.7 over a
// 100-second span truncate to 69 rather than 70 (spec.md §4.4, §8). The
// scaled span is truncated to whole seconds.
func ScaleTime(now, later time.Time, factor float32) time.Time {
	scaledSecs := later.Sub(now).Seconds() * float64(factor)
	return now.Add(time.Duration(int64(scaledSecs)) * time.Second)
}

// CalcSleep computes the end-of-iteration sleep: min(cap, max(0, next-now)),
// collapsing to 100ms whenever the loop is already due or overdue (spec.md
// §4.4 step 6, boundary cases in §8).
func CalcSleep(now, next time.Time, cap time.Duration) time.Duration {
	diff := next.Sub(now)
	if diff <= 0 {
		return 100 * time.Millisecond
	}
	if diff > cap {
		return cap
	}
	return diff
}

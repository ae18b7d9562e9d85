package benchmark

import "time"

// Measure runs work once and returns the elapsed nanoseconds together with
// the work's result. time.Now carries a monotonic reading, so wall clock
// adjustments during work do not affect the result.
func Measure[T any](work func() T) (int64, T) {
	start := time.Now()
	result := work()
	return time.Since(start).Nanoseconds(), result
}

// NanosToMillis converts nanoseconds to fractional milliseconds for display.
func NanosToMillis(nanos int64) float64 {
	return float64(nanos) / float64(time.Millisecond)
}

package rollout

import "unicode/utf16"

// Hash returns the absolute value of the Java String.hashCode of s.
//
// Code units are UTF-16, matching charCodeAt, and the accumulator wraps as a
// signed 32-bit integer. The absolute value is taken after widening, so
// math.MinInt32 maps to 2147483648 instead of staying negative.
func Hash(s string) uint32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

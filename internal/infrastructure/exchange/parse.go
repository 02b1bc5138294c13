package exchange

import (
	"strconv"
	"time"
)

// ParsePositive converts a quoted decimal, treating zero, negatives and
// garbage as absent. Venues report unavailable prices as "0".
func ParsePositive(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// ParseSigned converts a quoted decimal, keeping zero and negatives.
// Funding can legitimately be either.
func ParseSigned(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Positive boxes a plain number, treating zero and negatives as absent.
func Positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// Signed boxes a plain number.
func Signed(v float64) *float64 {
	return &v
}

// AsPercent rescales a fractional rate to percent, e.g. 0.0001 -> 0.01.
func AsPercent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

// MsToTime converts a millisecond epoch to UTC, nil when unset.
func MsToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

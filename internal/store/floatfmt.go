package store

import (
	"math"
	"strconv"
)

// formatFloat renders a score/increment the way ZSCORE and friends report it:
// integral values print without a decimal point, everything else uses the
// shortest round-trippable representation (spec.md §4.C).
func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && !math.Signbit(f) && math.Abs(f) < 1e17 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e17 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatFloat exports formatFloat for callers outside the package (the
// dispatcher renders ZSCORE/ZINCRBY/INCRBYFLOAT replies with it).
func FormatFloat(f float64) string { return formatFloat(f) }

// ParseScoreToken exports parseFloat for callers outside the package.
func ParseScoreToken(s string) (float64, error) { return parseFloat(s) }

// parseFloat parses a score argument, accepting "inf"/"+inf"/"-inf" the way
// ZADD/ZINCRBY do, rejecting NaN.
func parseFloat(s string) (float64, error) {
	switch s {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, ErrNotFloat
	}
	return f, nil
}

package util

import "math"

// WithinTolerance reports whether got is within max(absolute, relative*|want|)
// of want. A positive maxDelta caps the relative part, so large values such as
// years keep a small window.
func WithinTolerance(got, want, absolute, relative, maxDelta float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return false
	}
	rel := relative * math.Abs(want)
	if maxDelta > 0 {
		rel = math.Min(rel, maxDelta)
	}
	allowed := math.Max(absolute, rel)
	return math.Abs(got-want) <= allowed
}

// SimilarityRatio converts an edit distance between strings of lengths la and
// lb into a score in [0, 1], where 1 means identical.
func SimilarityRatio(distance, la, lb int) float64 {
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	ratio := 1 - float64(distance)/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}

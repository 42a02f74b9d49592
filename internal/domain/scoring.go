package domain

import "math"

// Score returns the points for a submission: the seconds remaining, rounded,
// when the choice is correct, and zero otherwise.
func Score(correctChoice, submitted string, timeRemaining float64) int {
	if submitted != correctChoice || timeRemaining <= 0 || math.IsNaN(timeRemaining) {
		return 0
	}
	return int(math.Round(timeRemaining))
}

// ClampRemaining bounds a client-reported time remaining by what the server
// measured, allowing grace seconds of skew.
func ClampRemaining(reported, serverRemaining, grace float64) float64 {
	if math.IsNaN(reported) || reported < 0 {
		return 0
	}
	limit := serverRemaining + grace
	if reported > limit {
		return limit
	}
	return reported
}

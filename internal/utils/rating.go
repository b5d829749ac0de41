package utils

import "math"

// AverageRating returns the mean of sum/count rounded to two decimals, or 0
// when count is zero.
func AverageRating(sum float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(sum/float64(count)*100) / 100
}

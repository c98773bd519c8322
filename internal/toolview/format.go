package toolview

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatFollowers scales follower counts: 2500000 is "2.5M", 1500 is
// "1.5K", smaller counts are printed as-is.
func FormatFollowers(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

// FormatEngagement prints a percentage rate with two decimals.
func FormatEngagement(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate)
}

// FormatBudget prints a dollar amount with thousands separators.
func FormatBudget(amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < 1e15 {
		return "$" + humanize.Comma(int64(amount))
	}
	return "$" + humanize.CommafWithDigits(amount, 2)
}

// Package ordinal renders integers as English ordinals ("1st", "2nd", ...).
package ordinal

import "strconv"

// Suffix returns the English ordinal suffix for n.
func Suffix(n int) string {
	if n < 0 {
		n = -n
	}
	switch n % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// Format returns n followed by its ordinal suffix.
func Format(n int) string {
	return strconv.Itoa(n) + Suffix(n)
}

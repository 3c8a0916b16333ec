// Package daytoken extracts explicit day declarations such as "#DAY-17",
// "day 17", "#day17" or "Day-17" from free text.
//
// Only that pattern family is recognized. Other numbers in a message (issue
// links, timestamps, versions) are never interpreted as a day.
package daytoken

import (
	"math"
	"regexp"
	"strconv"
)

// pattern matches an optional '#', the word "day" at a word start, an
// optional single space or hyphen, then digits not followed by a letter.
var pattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])#?day[ \t-]?(\d+)(?:[^\p{L}\p{N}_]|$)`)

// Extract returns the first day number found in text. Values too large for
// an int are clamped to math.MaxInt so range validation rejects them rather
// than the token silently disappearing.
func Extract(text string) (int, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}

// Valid reports whether day is within 1..max.
func Valid(day, max int) bool {
	return day >= 1 && day <= max
}

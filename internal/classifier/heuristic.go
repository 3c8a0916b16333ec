package classifier

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Threshold is the minimum heuristic score that counts as code.
const Threshold = 3

var (
	identifierStyle = regexp.MustCompile(`\b[a-z]+[A-Z][A-Za-z0-9]*\b|\b[a-z0-9]+_[a-z0-9_]+\b`)
	wordToken       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

const codeSymbols = "{}[]()<>;=+-*/%&|!^~:.,\"'$#@\\`"

// Score rates how code-like text is.
//
//	code span                                   +5
//	symbols per word > 0.1                      +2
//	symbols per word > 0.2                      +1
//	more than two lines                         +1
//	  ...with non-uniform indentation           +1
//	camelCase or snake_case identifier          +1
//	line length standard deviation > 15 chars   +1
func Score(text string) int {
	score := 0
	if HasCodeSpan(text) {
		score += 5
	}

	words := len(wordToken.FindAllString(text, -1))
	if words > 0 {
		symbols := 0
		for _, r := range text {
			if strings.ContainsRune(codeSymbols, r) {
				symbols++
			}
		}
		ratio := float64(symbols) / float64(words)
		if ratio > 0.1 {
			score += 2
		}
		if ratio > 0.2 {
			score++
		}
	}

	lines := nonEmptyLines(text)
	if len(lines) > 2 {
		score++
		if !uniformIndent(lines) {
			score++
		}
		if lineLengthStdDev(lines) > 15 {
			score++
		}
	}

	if identifierStyle.MatchString(text) {
		score++
	}
	return score
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, "\r"))
		}
	}
	return out
}

func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		switch {
		case r == '\t':
			n += 4
		case unicode.IsSpace(r):
			n++
		default:
			return n
		}
	}
	return n
}

func uniformIndent(lines []string) bool {
	first := indentWidth(lines[0])
	for _, l := range lines[1:] {
		if indentWidth(l) != first {
			return false
		}
	}
	return true
}

func lineLengthStdDev(lines []string) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, l := range lines {
		sum += float64(len(l))
	}
	mean := sum / float64(len(lines))
	var sq float64
	for _, l := range lines {
		d := float64(len(l)) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(lines)))
}

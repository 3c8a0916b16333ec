package daytoken

import (
	"math"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"#DAY-17 finished the parser", 17, true},
		{"day 17", 17, true},
		{"#day17", 17, true},
		{"Day-3: linked lists", 3, true},
		{"progress for DAY 42!", 42, true},
		{"day-1\n```go\nfmt.Println()\n```", 1, true},
		{"#day-5 and later #day-6", 5, true},
		{"(day 9)", 9, true},
		{"today 5 commits", 0, false},
		{"holiday 12", 0, false},
		{"day 12abc", 0, false},
		{"fixed issue #1234 in 3 files", 0, false},
		{"see https://github.com/x/y/issues/987", 0, false},
		{"daylight 7", 0, false},
		{"day - 7", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := Extract(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Extract(%q) = (%d,%v); want (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtract_OverflowClampsForValidation(t *testing.T) {
	got, ok := Extract("day 99999999999999999999999")
	if !ok || got != math.MaxInt {
		t.Fatalf("Extract overflow = (%d,%v)", got, ok)
	}
	if Valid(got, 10000) {
		t.Fatalf("overflowed day must not validate")
	}
}

func TestValid(t *testing.T) {
	if Valid(0, 10) || Valid(-1, 10) || Valid(11, 10) {
		t.Fatalf("out of range accepted")
	}
	if !Valid(1, 10) || !Valid(10, 10) {
		t.Fatalf("in range rejected")
	}
}

package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestPage(t *testing.T) {
	p := NewPage(0, 500, 100)
	if p.Number != 1 || p.Size != 100 || p.Offset() != 0 {
		t.Fatalf("clamped page: %+v", p)
	}
	p = NewPage(3, 20, 100)
	if p.Offset() != 40 || p.TotalPages(45) != 3 || p.HasNext(45) {
		t.Fatalf("page 3 of 45: %+v", p)
	}
	if !NewPage(1, 20, 100).HasNext(21) {
		t.Fatal("21 rows at 20 per page has a second page")
	}
	if NewPage(1, 20, 100).TotalPages(0) != 0 {
		t.Fatal("no rows, no pages")
	}
	if Clamp(5, 1, 3) != 3 || Clamp(-1, 0, 3) != 0 {
		t.Fatal("Clamp")
	}
}

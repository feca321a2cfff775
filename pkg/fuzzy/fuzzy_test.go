package fuzzy

import "testing"

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"hemoglobin", "hemoglobin", 0},
		{"hemoglobin", "hemoglobine", 1},
		{"gемоглобин", "гемоглобин", 1},
		{"krasnova", "krasnov", 1},
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestThreshold(t *testing.T) {
	cases := []struct {
		length, want int
	}{
		{0, 2},
		{4, 2},
		{10, 2},
		{14, 2},
		{15, 3},
		{20, 4},
		{30, 6},
	}
	for _, c := range cases {
		if got := Threshold(c.length); got != c.want {
			t.Errorf("Threshold(%d) = %d, want %d", c.length, got, c.want)
		}
	}
}

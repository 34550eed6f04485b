package ui

import "testing"

func TestProgressBar(t *testing.T) {
	cases := []struct {
		value, total, width int
		want                string
	}{
		{0, 100, 10, "[----------]"},
		{50, 100, 10, "[#####-----]"},
		{150, 100, 4, "[####]"},
		{-5, 100, 4, "[----]"},
		{1, 0, 1, "[###]"},
	}
	for _, tc := range cases {
		if got := ProgressBar(tc.value, tc.total, tc.width); got != tc.want {
			t.Fatalf("ProgressBar(%d,%d,%d)=%q, want %q", tc.value, tc.total, tc.width, got, tc.want)
		}
	}
}

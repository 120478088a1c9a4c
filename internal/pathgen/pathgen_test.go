package pathgen

import (
	"testing"
	"time"
)

func TestSegment(t *testing.T) {
	now := time.Date(2026, time.March, 7, 9, 5, 2, 0, time.UTC)

	cases := []struct {
		template string
		want     string
	}{
		{"{year}/{month}/{day}", "2026/03/07"},
		{"{year}-{month}", "2026-03"},
		{"/{hour}/{minute}/{second}/", "09/05/02"},
		{"{timestamp}", "1772874302"},
		{"static/dir", "static/dir"},
		{"", ""},
		{"{unknown}", "{unknown}"},
	}

	for _, tc := range cases {
		if got := Segment(tc.template, now); got != tc.want {
			t.Fatalf("Segment(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}

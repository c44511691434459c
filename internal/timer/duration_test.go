package timer

import (
	"testing"
	"time"
)

func TestParseExamTime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"2 hours", 2 * time.Hour, true},
		{"4.5 hours", 4*time.Hour + 30*time.Minute, true},
		{"1 hour", time.Hour, true},
		{"90 minutes", 90 * time.Minute, true},
		{"45 mins", 45 * time.Minute, true},
		{"30 seconds", 30 * time.Second, true},
		{"1h30m", 90 * time.Minute, true},
		{"  2 HOURS ", 2 * time.Hour, true},
		{"", 0, false},
		{"soon", 0, false},
		{"hours 2", 0, false},
		{"-1 hours", 0, false},
		{"0 hours", 0, false},
		{"2 fortnights", 0, false},
	}

	for _, tc := range tests {
		got, ok := ParseExamTime(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseExamTime(%q) = (%v, %v), want (%v, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

package models

import (
	"testing"
	"time"
)

func TestParseTeamStatus(t *testing.T) {
	cases := []struct {
		in   string
		want TeamStatus
		ok   bool
	}{
		{"", TeamStatusPublic, true},
		{"PUBLIC", TeamStatusPublic, true},
		{"PRIVATE", TeamStatusPrivate, true},
		{"SECRET", TeamStatusSecret, true},
		{"public", "", false},
		{"HIDDEN", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseTeamStatus(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseTeamStatus(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTeamExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (Team{}).Expired(now) {
		t.Error("team without expiry reported expired")
	}
	if !(Team{ExpiresAt: &past}).Expired(now) {
		t.Error("past expiry not reported expired")
	}
	if (Team{ExpiresAt: &future}).Expired(now) {
		t.Error("future expiry reported expired")
	}
}

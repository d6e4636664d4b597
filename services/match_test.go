package services

import "testing"

func TestMatchScore(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want int
	}{
		{"both empty", nil, nil, 0},
		{"identical", []string{"go", "redis"}, []string{"go", "redis"}, 0},
		{"one empty", []string{"go", "redis"}, nil, 2},
		{"single substitution", []string{"go", "redis"}, []string{"go", "kafka"}, 1},
		{"insertion", []string{"go"}, []string{"go", "redis"}, 1},
		{"disjoint", []string{"a", "b"}, []string{"c", "d"}, 2},
		{"reordered costs", []string{"a", "b", "c"}, []string{"c", "a", "b"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchScore(tc.a, tc.b); got != tc.want {
				t.Fatalf("MatchScore(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
			if got := MatchScore(tc.b, tc.a); got != tc.want {
				t.Fatalf("MatchScore(%v, %v) = %d, want %d", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

package model

import "testing"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in    string
		want  Direction
		valid bool
	}{
		{"", DirectionForward, true},
		{"forward", DirectionForward, true},
		{"backward", DirectionBackward, true},
		{"up", "", false},
		{"FORWARD", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Errorf("ParseDirection(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

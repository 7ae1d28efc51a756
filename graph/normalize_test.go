package graph

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AI", "ai"},
		{"ai", "ai"},
		{"Machine-Learning  Basics", "machine_learning_basics"},
		{"--x--", "x"},
		{"!!!", ""},
		{"", ""},
		{"   ", ""},
		{"a - b", "a_b"},
		{"C++ Programming", "c_programming"},
		{"snake_case_id", "snake_case_id"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"Café Au-Lait", "café_au_lait"},
		{"Version 2.0", "version_20"},
		{"tab\tseparated\nline", "tab_separated_line"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Machine-Learning  Basics",
		"  Neural Networks (Deep) ",
		"a _ b",
		"Ünïcode/Dash",
		"x--y__z",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "python developer",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "resume",
			limit:  10,
			expect: "resume",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "machine learning",
			limit:  7,
			expect: "machine...",
		},
		{
			name:   "counts runes not bytes",
			input:  "développeur",
			limit:  4,
			expect: "déve...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

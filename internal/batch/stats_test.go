package batch

import "testing"

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  float64
	}{
		{"empty batch", Stats{}, 0},
		{"quarter", Stats{Total: 4, Success: 1}, 25},
		{"third", Stats{Total: 3, Success: 1}, 100.0 / 3.0},
		{"all successful", Stats{Total: 3, Success: 3}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.SuccessRate(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDisplayRate(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  string
	}{
		{"empty batch", Stats{}, "0.0%"},
		{"two thirds", Stats{Total: 3, Success: 2}, "66.7%"},
		{"one third", Stats{Total: 3, Success: 1}, "33.3%"},
		{"all successful", Stats{Total: 3, Success: 3}, "100.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.DisplayRate(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

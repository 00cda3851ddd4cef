package api

import "testing"

func TestJoinOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		defaultVal string
		want       string
	}{
		{"empty uses default", nil, "*", "*"},
		{"single value", []string{"https://a.example"}, "*", "https://a.example"},
		{"multiple values", []string{"GET", "POST", "PUT"}, "", "GET, POST, PUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinOrDefault(tt.values, tt.defaultVal); got != tt.want {
				t.Errorf("joinOrDefault(%v, %q) = %q, want %q", tt.values, tt.defaultVal, got, tt.want)
			}
		})
	}
}

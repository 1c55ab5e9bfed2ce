package rai

import "testing"

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"4111111111111111", true},  // classic Visa test number
		{"4111111111111112", false}, // checksum off by one
		{"79927398713", true},
		{"79927398710", false},
		{"0", true},
		{"", false},
		{"4111-1111", false}, // separators must be stripped by the caller
		{"abcd", false},
	}
	for _, tt := range tests {
		if got := luhnValid(tt.digits); got != tt.want {
			t.Errorf("luhnValid(%q) = %v, want %v", tt.digits, got, tt.want)
		}
	}
}

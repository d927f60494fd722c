package api

import (
	"testing"
)

func TestNewCompletionID(t *testing.T) {
	id := NewCompletionID()
	if !ValidateCompletionID(id) {
		t.Errorf("NewCompletionID() = %q, want valid completion ID", id)
	}
}

func TestNewCompletionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewCompletionID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestValidateCompletionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "cmpl_abcdefghijklmnopqrstuvwx", true},
		{"valid mixed case", "cmpl_AbCdEfGhIjKlMnOpQrStUvWx", true},
		{"valid digits", "cmpl_123456789012345678901234", true},
		{"wrong prefix", "resp_abcdefghijklmnopqrstuvwx", false},
		{"too short", "cmpl_abc", false},
		{"too long", "cmpl_abcdefghijklmnopqrstuvwxy", false},
		{"special chars", "cmpl_abcdefghijklmnopqrstuv!@", false},
		{"empty", "", false},
		{"prefix only", "cmpl_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCompletionID(tt.id); got != tt.want {
				t.Errorf("ValidateCompletionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

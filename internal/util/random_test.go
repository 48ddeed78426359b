package util

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateRandomAlphaNumeric(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -5, 0},
		{"normal length", 6, 6},
		{"long", 32, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomAlphaNumeric(tt.length)
			if len(got) != tt.want {
				t.Errorf("GenerateRandomAlphaNumeric(%d) length = %d, want %d", tt.length, len(got), tt.want)
			}
			for _, c := range got {
				if !strings.ContainsRune("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", c) {
					t.Errorf("unexpected character %q in %q", c, got)
				}
			}
		})
	}
}

func TestGenerateResponseIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	id := GenerateResponseID(now)

	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts in %q, got %d", id, len(parts))
	}
	if parts[0] != "CTR" {
		t.Errorf("expected CTR prefix, got %q", parts[0])
	}
	if parts[1] != "20260310" {
		t.Errorf("expected date segment 20260310, got %q", parts[1])
	}
	if len(parts[2]) != 6 {
		t.Errorf("expected 6-char suffix, got %q", parts[2])
	}
}

func TestGenerateResponseIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		id := GenerateResponseID(now)
		if seen[id] {
			t.Fatalf("duplicate response ID generated: %s", id)
		}
		seen[id] = true
	}
}

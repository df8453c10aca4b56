package services

import (
	"strings"
	"testing"
)

func TestGenerateOrderCodeFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOrderCode(nil)
		if err != nil {
			t.Fatalf("GenerateOrderCode: %v", err)
		}
		if !OrderCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match pattern", code)
		}
		for _, r := range code[:3] {
			if strings.ContainsRune("IOQ", r) {
				t.Fatalf("code %q contains ambiguous letter %c", code, r)
			}
		}
	}
}

func TestGenerateOrderCodeAvoidsExisting(t *testing.T) {
	existing := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := GenerateOrderCode(existing)
		if err != nil {
			t.Fatalf("GenerateOrderCode after %d codes: %v", i, err)
		}
		if _, dup := existing[code]; dup {
			t.Fatalf("code %q returned twice", code)
		}
		existing[code] = struct{}{}
	}
}

func TestNormalizeOrderCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kfr-204", "KFR-204"},
		{"  KFR-204  ", "KFR-204"},
		{"kfr - 204", "KFR-204"},
		{"KFR204", "KFR-204"},
		{"kfr 204", "KFR-204"},
		{"kfr204", "KFR-204"},
		{"KFR2044", "KFR2044"},
		{"KF204", "KF204"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeOrderCode(tt.in); got != tt.want {
			t.Errorf("NormalizeOrderCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrderCodePattern(t *testing.T) {
	valid := []string{"ABC-123", "KFR-204", "ZZZ-000"}
	invalid := []string{"abc-123", "AB-123", "ABCD-123", "ABC-12", "ABC-1234", "ABC123", "123-ABC", ""}
	for _, s := range valid {
		if !OrderCodePattern.MatchString(s) {
			t.Errorf("pattern should accept %q", s)
		}
	}
	for _, s := range invalid {
		if OrderCodePattern.MatchString(s) {
			t.Errorf("pattern should reject %q", s)
		}
	}
}

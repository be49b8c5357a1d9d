package otp

import (
	"strconv"
	"testing"
)

func TestGenerateCode_ReturnsSixDigitsInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code length = %d, want 6", len(code))
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestGenerateCode_Randomness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		seen[code] = true
	}
	// 50 draws from 900000 values colliding down to a handful would mean a broken source.
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes in 50 draws", len(seen))
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+1 555 010 0001", "+15550100001"},
		{" 0123456789 ", "0123456789"},
		{"+44\t7700\n900123", "+447700900123"},
		{"+1 555 123", "+1555123"},
		{"+1-555-0100", "+1-555-0100"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+15550100001"); got != "********0001" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("123"); got != "****" {
		t.Errorf("MaskPhone short = %q", got)
	}
}

func TestLastDigits(t *testing.T) {
	if got := LastDigits("+15550100001", 4); got != "0001" {
		t.Errorf("LastDigits = %q, want 0001", got)
	}
	if got := LastDigits("12", 4); got != "12" {
		t.Errorf("LastDigits short = %q, want 12", got)
	}
}

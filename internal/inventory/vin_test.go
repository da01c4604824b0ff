package inventory

import (
	"strings"
	"testing"
	"time"
)

func TestValidVIN(t *testing.T) {
	cases := []struct {
		vin  string
		want bool
	}{
		{"JTNBE46KX83012345", true},
		{"ABC", true},
		{"", false},
		{"JTNBE46KX830123456", false}, // 18 chars
		{"JTNBE46KX 8301234", false},  // whitespace
	}
	for _, c := range cases {
		if got := ValidVIN(c.vin); got != c.want {
			t.Fatalf("ValidVIN(%q) = %v, want %v", c.vin, got, c.want)
		}
	}
}

func TestSynthesizeVIN(t *testing.T) {
	now := time.Now()
	vin := SynthesizeVIN("Toyota", "Camry", now)
	if !ValidVIN(vin) {
		t.Fatalf("synthesized vin %q is not valid", vin)
	}
	if !strings.HasPrefix(vin, "TOYCA") {
		t.Fatalf("expected brand/model prefix, got %q", vin)
	}

	// 同一时刻的两次合成因随机后缀而不同
	if SynthesizeVIN("Toyota", "Camry", now) == SynthesizeVIN("Toyota", "Camry", now) {
		t.Fatalf("expected random suffix to differ")
	}
}

func TestSynthesizeVINShortNames(t *testing.T) {
	vin := SynthesizeVIN("BM W!", "3", time.Now())
	if !ValidVIN(vin) {
		t.Fatalf("synthesized vin %q is not valid", vin)
	}
	if !strings.HasPrefix(vin, "BMW3X") {
		t.Fatalf("expected padded prefix BMW3X, got %q", vin)
	}
}

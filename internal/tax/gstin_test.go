package tax

import (
	"errors"
	"testing"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

func TestValidateGSTINAccepts(t *testing.T) {
	cases := []struct {
		in    string
		state string
	}{
		{"27AABCU9603R1ZN", "Maharashtra"},
		{"29ABCDE1234F1ZW", "Karnataka"},
		{"06BZAHM6385P6Z0", "Haryana"},
		{"33AAGCC7144L1ZJ", "Tamil Nadu"},
	}
	for _, tc := range cases {
		got, err := ValidateGSTIN(tc.in)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if got.StateName != tc.state {
			t.Fatalf("%s: state %q, want %q", tc.in, got.StateName, tc.state)
		}
	}
}

func TestValidateGSTINNormalises(t *testing.T) {
	got, err := ValidateGSTIN("  27aabcu9603r1zn ")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Value != "27AABCU9603R1ZN" {
		t.Fatalf("value %q not normalised", got.Value)
	}
	if got.StateCode != "27" {
		t.Fatalf("state code %q", got.StateCode)
	}
}

func TestValidateGSTINRejects(t *testing.T) {
	cases := map[string]string{
		"wrong length":      "27AABCU9603R1Z",
		"unknown state":     "99AABCU9603R1ZN",
		"bad structure":     "27AABC09603R1ZN",
		"wrong check char":  "27AABCU9603R1Z5",
		"flipped body char": "27AABCV9603R1ZN",
	}
	for name, in := range cases {
		if _, err := ValidateGSTIN(in); err == nil {
			t.Fatalf("%s: expected error for %q", name, in)
		} else if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("%s: error %v is not a validation error", name, err)
		}
	}
}

func TestStateName(t *testing.T) {
	if name, ok := StateName("33"); !ok || name != "Tamil Nadu" {
		t.Fatalf("got %q %v", name, ok)
	}
	if _, ok := StateName("99"); ok {
		t.Fatalf("99 should be unknown")
	}
}

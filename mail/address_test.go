package mail

import (
	"errors"
	"testing"
)

func TestParseAddressRoundTrip(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		wantAddr    string
	}{
		{
			description: "bare address",
			input:       "user@example.com",
			wantAddr:    "user@example.com",
		},
		{
			description: "display name",
			input:       "App Sender <app@example.com>",
			wantAddr:    "app@example.com",
		},
		{
			description: "quoted display name",
			input:       `"Sender, App" <app@example.com>`,
			wantAddr:    "app@example.com",
		},
		{
			description: "subdomain and plus tag",
			input:       "user+tag@mail.example.co.uk",
			wantAddr:    "user+tag@mail.example.co.uk",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			a, err := ParseAddress(tc.input)
			if err != nil {
				t.Fatalf("unexpected error parsing %q: %v", tc.input, err)
			}
			if a.Addr() != tc.wantAddr {
				t.Errorf("wanted addr-spec %q but got %q", tc.wantAddr, a.Addr())
			}

			// The rendered form must parse back to an equivalent
			// address.
			b, err := ParseAddress(a.String())
			if err != nil {
				t.Fatalf(
					"the rendered form %q does not re-parse: %v",
					a.String(),
					err,
				)
			}
			if b.Addr() != a.Addr() {
				t.Errorf(
					"round trip changed the addr-spec from %q to %q",
					a.Addr(),
					b.Addr(),
				)
			}
		})
	}
}

func TestParseAddressInvalid(t *testing.T) {
	testCases := []struct {
		description string
		input       string
	}{
		{
			description: "empty string",
			input:       "",
		},
		{
			description: "no at sign",
			input:       "userexample.com",
		},
		{
			description: "spaces in the local part",
			input:       "us er@example.com",
		},
		{
			description: "multiple addresses",
			input:       "a@example.com, b@example.com",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := ParseAddress(tc.input)
			if err == nil {
				t.Fatalf("expected an error parsing %q but got none", tc.input)
			}
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf(
					"expected the error for %q to wrap ErrInvalidAddress, got: %v",
					tc.input,
					err,
				)
			}
		})
	}
}

func TestAddressZeroValue(t *testing.T) {
	var a Address
	if !a.IsZero() {
		t.Error("the zero Address should report IsZero")
	}
	if a.String() != "" || a.Addr() != "" {
		t.Error("the zero Address should render as empty strings")
	}

	b := MustParseAddress("user@example.com")
	if b.IsZero() {
		t.Error("a parsed Address should not report IsZero")
	}
}

package mail

import (
	"fmt"
	netmail "net/mail"
	"strings"
)

// Address is a single parsed email address, optionally with a display
// name. The zero value means "not set".
type Address struct {
	address *netmail.Address
}

// ParseAddress parses a raw string such as "user@example.com" or
// "User <user@example.com>" into an Address. The returned error wraps
// ErrInvalidAddress if the string isn't a legal address.
func ParseAddress(raw string) (Address, error) {
	a, err := netmail.ParseAddress(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, raw, err)
	}
	return Address{address: a}, nil
}

// MustParseAddress is ParseAddress that panics on error, for use with
// addresses known to be well formed, e.g. in tests.
func MustParseAddress(raw string) Address {
	a, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a holds no address at all.
func (a Address) IsZero() bool {
	return a.address == nil
}

// String returns the RFC 5322 representation of the address, including
// the display name if one was parsed. Empty for the zero value.
func (a Address) String() string {
	if a.address == nil {
		return ""
	}
	return a.address.String()
}

// Addr returns the bare addr-spec, e.g. "user@example.com". This is the
// form used on the SMTP envelope. Empty for the zero value.
func (a Address) Addr() string {
	if a.address == nil {
		return ""
	}
	return a.address.Address
}

// domain returns the part of the addr-spec after the "@", or "localhost"
// if there is none. Used for Message-ID generation.
func (a Address) domain() string {
	_, d, found := strings.Cut(a.Addr(), "@")
	if !found || d == "" {
		return "localhost"
	}
	return d
}

// joinAddresses renders a comma-separated header value from as.
func joinAddresses(as []Address) string {
	strs := make([]string, len(as))
	for i, a := range as {
		strs[i] = a.String()
	}
	return strings.Join(strs, ", ")
}

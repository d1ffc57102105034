package identifier

import (
	"regexp"
	"strings"
)

// Kind tells which channel an identifier belongs to.
type Kind uint8

const (
	// KindPhone marks identifiers that are not email addresses.
	KindPhone Kind = iota
	// KindEmail marks identifiers that matched the email pattern.
	KindEmail
)

func (k Kind) String() string {
	if k == KindEmail {
		return "email"
	}
	return "phone"
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Identifier is the canonical form of a user supplied email or phone number.
type Identifier struct {
	Value string
	Kind  Kind

	countryPrefix string
	domestic      int
}

// IsEmail reports whether the identifier is an email address.
func (id Identifier) IsEmail() bool { return id.Kind == KindEmail }

// IsPhone reports whether the identifier is treated as a phone number.
func (id Identifier) IsPhone() bool { return id.Kind == KindPhone }

// String returns the canonical value.
func (id Identifier) String() string { return id.Value }

// Legacy returns the unprefixed domestic form of a canonical phone number, which
// older records were stored under. For emails and phones without the country
// prefix it returns the value unchanged.
func (id Identifier) Legacy() string {
	if id.Kind != KindPhone || id.countryPrefix == "" {
		return id.Value
	}
	return strings.TrimPrefix(id.Value, id.countryPrefix)
}

// Candidates returns the canonical value followed by the legacy form when they differ.
func (id Identifier) Candidates() []string {
	legacy := id.Legacy()
	if legacy == id.Value {
		return []string{id.Value}
	}
	return []string{id.Value, legacy}
}

// Valid reports whether the identifier is an email or a fully prefixed phone number.
func (id Identifier) Valid() bool {
	if id.Kind == KindEmail {
		return true
	}
	if id.countryPrefix == "" || !strings.HasPrefix(id.Value, id.countryPrefix) {
		return false
	}
	rest := id.Value[len(id.countryPrefix):]
	return len(rest) == id.domestic && allDigits(rest)
}

// Normalizer canonicalizes identifiers for one country dialing code.
type Normalizer struct {
	// CountryCode is the dialing code without "+", e.g. "91".
	CountryCode string
	// DomesticDigits is the national number length, e.g. 10.
	DomesticDigits int
}

// Default is the Indian normalizer used by the service.
var Default = Normalizer{CountryCode: "91", DomesticDigits: 10}

// Normalize canonicalizes raw with the default normalizer.
func Normalize(raw string) Identifier {
	return Default.Normalize(raw)
}

// Normalize trims raw and canonicalizes it. Emails are lowercased. Phone numbers
// with the domestic length get the country prefix, numbers that already carry
// the country code get a leading "+", anything else is left as trimmed input.
// Normalize is pure and idempotent.
func (n Normalizer) Normalize(raw string) Identifier {
	if n.CountryCode == "" {
		n = Default
	}
	prefix := "+" + n.CountryCode
	value := strings.TrimSpace(raw)

	if emailPattern.MatchString(value) {
		return Identifier{
			Value:         strings.ToLower(value),
			Kind:          KindEmail,
			countryPrefix: prefix,
			domestic:      n.DomesticDigits,
		}
	}

	digits := onlyDigits(value)
	switch {
	case len(digits) == n.DomesticDigits:
		value = prefix + digits
	case len(digits) == n.DomesticDigits+len(n.CountryCode) && strings.HasPrefix(digits, n.CountryCode):
		value = "+" + digits
	}

	return Identifier{
		Value:         value,
		Kind:          KindPhone,
		countryPrefix: prefix,
		domestic:      n.DomesticDigits,
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

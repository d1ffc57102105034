package identifier

import "testing"

func TestNormalizeTable(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		kind  Kind
		valid bool
	}{
		{in: "  Alice@Example.COM ", want: "alice@example.com", kind: KindEmail, valid: true},
		{in: "9876543210", want: "+919876543210", kind: KindPhone, valid: true},
		{in: "919876543210", want: "+919876543210", kind: KindPhone, valid: true},
		{in: "+91 98765-43210", want: "+919876543210", kind: KindPhone, valid: true},
		{in: "+919876543210", want: "+919876543210", kind: KindPhone, valid: true},
		{in: "12345", want: "12345", kind: KindPhone, valid: false},
		{in: "not an email", want: "not an email", kind: KindPhone, valid: false},
		{in: "", want: "", kind: KindPhone, valid: false},
	}

	for _, tc := range cases {
		got := Normalize(tc.in)
		if got.Value != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got.Value, tc.want)
		}
		if got.Kind != tc.kind {
			t.Fatalf("Normalize(%q) kind = %v, want %v", tc.in, got.Kind, tc.kind)
		}
		if got.Valid() != tc.valid {
			t.Fatalf("Normalize(%q).Valid() = %v, want %v", tc.in, got.Valid(), tc.valid)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"9876543210", "919876543210", " Bob@Mail.io", "+44 20 7946 0958", "abc", "  "}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once.Value)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %+v vs %+v", in, once, twice)
		}
	}
}

func TestLegacyAndCandidates(t *testing.T) {
	phone := Normalize("9876543210")
	if phone.Legacy() != "9876543210" {
		t.Fatalf("unexpected legacy form %q", phone.Legacy())
	}
	if c := phone.Candidates(); len(c) != 2 || c[0] != "+919876543210" || c[1] != "9876543210" {
		t.Fatalf("unexpected candidates %v", c)
	}

	email := Normalize("x@y.io")
	if email.Legacy() != "x@y.io" || len(email.Candidates()) != 1 {
		t.Fatalf("email should have a single candidate, got %v", email.Candidates())
	}
}

func TestCustomCountryCode(t *testing.T) {
	n := Normalizer{CountryCode: "44", DomesticDigits: 10}
	got := n.Normalize("7946095812")
	if got.Value != "+447946095812" || !got.Valid() {
		t.Fatalf("unexpected normalization %+v valid=%v", got, got.Valid())
	}
}

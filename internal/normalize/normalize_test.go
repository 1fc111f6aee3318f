package normalize

import "testing"

func TestValue(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Café  du Port", "cafe_du_port"},
		{"cafe_du_port", "cafe_du_port"},
		{"  ACME Corp ", "acme_corp"},
		{"Müller\tGmbH", "muller_gmbh"},
		{"Élodie", "elodie"},
		{"", ""},
		{"   ", ""},
		{"already_normal", "already_normal"},
	}
	for _, c := range cases {
		if got := Value(c.in); got != c.want {
			t.Errorf("Value(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValueIdempotent(t *testing.T) {
	inputs := []string{"Café  du Port", "ÉÈÊ  ëïü", "a  b\t c", "plain"}
	for _, in := range inputs {
		once := Value(in)
		if twice := Value(once); twice != once {
			t.Errorf("Value not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestValueAccentCaseWhitespaceInsensitive(t *testing.T) {
	if Value("Café  du Port") != Value("cafe_du_port") {
		t.Fatalf("accent/case/whitespace variants should canonicalize identically")
	}
}

func TestAny(t *testing.T) {
	if got := Any(nil); got != "" {
		t.Errorf("Any(nil) = %q, want empty", got)
	}
	if got := Any(42); got != "42" {
		t.Errorf("Any(42) = %q, want 42", got)
	}
	if got := Any([]byte(" Acme ")); got != "acme" {
		t.Errorf("Any([]byte) = %q, want acme", got)
	}
}

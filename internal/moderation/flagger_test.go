package moderation

import "testing"

func TestFlagger(t *testing.T) {
	f := NewFlagger("casino, pyramid scheme")

	cases := []struct {
		text string
		want bool
	}{
		{"Build me a CASINO landing page", true},
		{"Classic Pyramid Scheme promotion", true},
		{"Build me a portfolio site", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := f.Flagged(tc.text); got != tc.want {
			t.Errorf("Flagged(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestFlagger_DefaultsOnEmptyConfig(t *testing.T) {
	f := NewFlagger("   ")
	if !f.Flagged("offering a hacking service here") {
		t.Error("empty config should fall back to the default term list")
	}
}

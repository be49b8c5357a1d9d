package domain

import "testing"

func TestProviderDisplayName(t *testing.T) {
	tests := map[Provider]string{
		ProviderGoogle:   "Google",
		ProviderFacebook: "Facebook",
		"github":         "Github",
		"":               "",
	}
	for p, want := range tests {
		if got := p.DisplayName(); got != want {
			t.Errorf("%q.DisplayName() = %q, want %q", p, got, want)
		}
	}
}

func TestAssertionNormalize(t *testing.T) {
	got := Assertion{
		Provider:   " Google ",
		ProviderID: " 123 ",
		Name:       "  Ada Lovelace ",
		Email:      " Ada@Example.COM ",
	}.Normalize()
	want := Assertion{Provider: ProviderGoogle, ProviderID: "123", Name: "Ada Lovelace", Email: "ada@example.com"}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

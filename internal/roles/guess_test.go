package roles

import "testing"

func TestGuess_ExactAliasCaseInsensitive(t *testing.T) {
	headers := []string{"E-Mail", "Full Name"}
	aliases := Aliases{
		"email": {"email", "e-mail"},
		"name":  {"name", "full_name", "fullname"},
	}
	m := Guess(headers, aliases)

	col, ok := m.Column("email")
	if !ok || col != "E-Mail" {
		t.Fatalf("email resolved to %q (ok=%v), want E-Mail", col, ok)
	}
}

func TestGuess_FuzzyFallbackBelowCutoff(t *testing.T) {
	// "name" vs "full name" scores well under 0.8, so the role must stay
	// unresolved rather than guess wrong.
	headers := []string{"E-Mail", "Full Name"}
	m := Guess(headers, Aliases{"name": {"nom_complet"}})

	if _, ok := m.Column("name"); ok {
		t.Fatalf("name should be unresolved, got %q", m["name"])
	}
	if got := m.Unresolved(); len(got) != 1 || got[0] != "name" {
		t.Fatalf("Unresolved() = %v, want [name]", got)
	}
}

func TestGuess_FuzzyFallbackClearing(t *testing.T) {
	// "names" is one edit from "name": ratio 0.8, exactly at the cutoff.
	m := Guess([]string{"Names"}, Aliases{"name": {"libelle"}})
	col, ok := m.Column("name")
	if !ok || col != "Names" {
		t.Fatalf("name resolved to %q (ok=%v), want Names via fuzzy fallback", col, ok)
	}
}

func TestGuess_EveryRoleHasEntry(t *testing.T) {
	m := Guess([]string{"whatever"}, ProfileAliases)
	for role := range ProfileAliases {
		if _, exists := m[role]; !exists {
			t.Errorf("role %q missing from RoleMap", role)
		}
	}
}

func TestGuess_AliasOrderWins(t *testing.T) {
	// Both aliases exist as headers; the earlier alias in the list must win.
	headers := []string{"user_id", "id"}
	m := Guess(headers, Aliases{"id": {"id", "user_id"}})
	if col, _ := m.Column("id"); col != "id" {
		t.Fatalf("id resolved to %q, want id (first alias hit)", col)
	}
}

func TestGuess_FuzzyTieBreaksByHeaderOrder(t *testing.T) {
	// Two headers equally distant from the role name; first occurrence wins.
	headers := []string{"dates", "datex"}
	m := Guess(headers, Aliases{"date": {"created_on"}})
	if col, _ := m.Column("date"); col != "dates" {
		t.Fatalf("date resolved to %q, want dates (first of tied headers)", col)
	}
}

// Package roles maps arbitrary source-file headers onto the small set of
// semantic roles the resolver core understands (id, email, name, ...).
package roles

// Aliases is the recognized-options configuration for one table kind: role
// name -> ordered list of accepted header aliases, tried in order.
type Aliases map[string][]string

// Built-in alias sets for the four export kinds the tool ingests. Callers
// may supply their own Aliases (e.g. decoded from a JSON config); these are
// the defaults and double as documentation of the expected exports.
var (
	// ProfileAliases covers individual member profile exports.
	ProfileAliases = Aliases{
		"id":         {"id", "profile_id", "user_id", "uid"},
		"email":      {"email", "e-mail", "mail"},
		"name":       {"name", "full_name", "fullname", "nom", "prenom_nom"},
		"firstname":  {"first_name", "prenom"},
		"lastname":   {"last_name", "nom"},
		"company_id": {"company_id", "startup_id", "organisation_id", "organisation", "entreprise_id"},
	}

	// StartupAliases covers organization exports; the optional internal
	// reference table uses the same shape.
	StartupAliases = Aliases{
		"id":     {"id", "startup_id", "company_id", "organisation_id"},
		"name":   {"name", "company_name", "startup_name", "entreprise"},
		"sector": {"sector", "secteur", "industry"},
		"status": {"status", "stage", "etat"},
	}

	// MatchAliases covers relationship/interaction history exports.
	MatchAliases = Aliases{
		"id":         {"id", "match_id", "relation_id"},
		"profile_id": {"profile_id", "user_id", "uid"},
		"startup_id": {"startup_id", "company_id", "organisation_id"},
		"date":       {"date", "created_at", "timestamp", "match_date"},
	}
)

// Clone returns a deep copy, letting callers extend a built-in set without
// mutating package state.
func (a Aliases) Clone() Aliases {
	out := make(Aliases, len(a))
	for role, list := range a {
		cp := make([]string, len(list))
		copy(cp, list)
		out[role] = cp
	}
	return out
}

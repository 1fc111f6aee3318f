// Package report assembles the cross-table KPI report: per-table counts,
// the enriched relationship view, top organizations, the marketplace vs
// internal cross, and a weekly relationship series. Degraded conditions
// (unresolved roles, skipped joins) are collected as itemized notices,
// never silently dropped.
package report

import (
	"fmt"
	"sort"

	"github.com/b33n-tech/club-suite-quest/internal/roles"
	"github.com/b33n-tech/club-suite-quest/internal/table"
)

// Table kinds a session recognizes. Internal is optional.
const (
	TableProfiles = "profiles"
	TableStartups = "startups"
	TableMatches  = "matches"
	TableInternal = "internal"
)

// DefaultAliases returns the built-in alias set for a table kind, nil for an
// unknown kind. The internal reference table shares the startup shape.
func DefaultAliases(kind string) roles.Aliases {
	switch kind {
	case TableProfiles:
		return roles.ProfileAliases
	case TableStartups, TableInternal:
		return roles.StartupAliases
	case TableMatches:
		return roles.MatchAliases
	}
	return nil
}

// Session is the explicit state object for one report run: the loaded
// tables, their guessed role maps, and any user overrides. Overrides always
// win over guesses. Not safe for concurrent use.
type Session struct {
	tables    map[string]*table.Table
	roles     map[string]roles.RoleMap
	overrides map[string]map[string]string
}

func NewSession() *Session {
	return &Session{
		tables:    map[string]*table.Table{},
		roles:     map[string]roles.RoleMap{},
		overrides: map[string]map[string]string{},
	}
}

// AddTable registers a loaded table under a kind and guesses its role map.
// A nil aliases falls back to the built-in set for the kind.
func (s *Session) AddTable(kind string, t *table.Table, aliases roles.Aliases) {
	if aliases == nil {
		aliases = DefaultAliases(kind)
	}
	s.tables[kind] = t
	s.roles[kind] = roles.Guess(t.Headers, aliases)
}

func (s *Session) Table(kind string) (*table.Table, bool) {
	t, ok := s.tables[kind]
	return t, ok
}

func (s *Session) Roles(kind string) (roles.RoleMap, bool) {
	m, ok := s.roles[kind]
	return m, ok
}

// Override pins a role to a specific column for a kind, taking precedence
// over the guessed mapping. An empty column clears the override.
func (s *Session) Override(kind, role, column string) {
	if column == "" {
		delete(s.overrides[kind], role)
		return
	}
	if s.overrides[kind] == nil {
		s.overrides[kind] = map[string]string{}
	}
	s.overrides[kind][role] = column
}

// Column resolves a role for a kind: the override if set, else the guess.
func (s *Session) Column(kind, role string) (string, bool) {
	if col, ok := s.overrides[kind][role]; ok {
		return col, true
	}
	m, ok := s.roles[kind]
	if !ok {
		return "", false
	}
	return m.Column(role)
}

// Kinds returns the registered table kinds in sorted order.
func (s *Session) Kinds() []string {
	out := make([]string, 0, len(s.tables))
	for k := range s.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Notice is one degraded-but-continuing condition: the table and role it
// affects and what was skipped because of it.
type Notice struct {
	Table  string `json:"table"`
	Role   string `json:"role,omitempty"`
	Detail string `json:"detail"`
}

func (n Notice) String() string {
	if n.Role == "" {
		return fmt.Sprintf("%s: %s", n.Table, n.Detail)
	}
	return fmt.Sprintf("%s/%s: %s", n.Table, n.Role, n.Detail)
}

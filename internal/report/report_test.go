package report

import (
	"strings"
	"testing"
	"time"

	"github.com/b33n-tech/club-suite-quest/internal/table"
)

func tbl(name string, headers []string, rows ...[]string) *table.Table {
	return &table.Table{Name: name, Headers: headers, Rows: rows}
}

func fullSession() *Session {
	s := NewSession()
	s.AddTable(TableProfiles, tbl("profiles",
		[]string{"id", "email", "name"},
		[]string{"P1", "ana@example.com", "Ana"},
		[]string{"P2", "bob@example.com", "Bob"},
		[]string{"P3", "cyd@example.com", "Cyd"},
	), nil)
	s.AddTable(TableStartups, tbl("startups",
		[]string{"id", "name", "secteur"},
		[]string{"S1", "Acme", "fintech"},
		[]string{"S2", "Beta", "health"},
		[]string{"S3", "Grendel", "energy"},
	), nil)
	s.AddTable(TableMatches, tbl("matches",
		[]string{"id", "profile_id", "startup_id", "date"},
		[]string{"M1", "P1", "S1", "2023-05-01"},
		[]string{"M2", "P2", "S1", "2023-05-03"},
		[]string{"M3", "P1", "S2", "2023-05-08"},
		[]string{"M4", "P3", "", "not a date"},
	), nil)
	return s
}

func TestBuildCounts(t *testing.T) {
	r := Build(fullSession(), 0)
	if r.Profiles != 3 || r.Startups != 3 || r.Matches != 4 {
		t.Fatalf("counts = %d/%d/%d, want 3/3/4", r.Profiles, r.Startups, r.Matches)
	}
	if r.MatchesPerProfile != 1.33 {
		t.Errorf("MatchesPerProfile = %v, want 1.33", r.MatchesPerProfile)
	}
	if r.Internal != 0 {
		t.Errorf("Internal = %d, want 0 when table absent", r.Internal)
	}
	if r.IncubatedMatched != -1 {
		t.Errorf("IncubatedMatched = %d, want -1 when cross not computed", r.IncubatedMatched)
	}
}

func TestMatchesPerProfileWithoutProfiles(t *testing.T) {
	s := NewSession()
	s.AddTable(TableMatches, tbl("matches",
		[]string{"id", "profile_id", "startup_id", "date"},
		[]string{"M1", "P1", "S1", ""},
		[]string{"M2", "P2", "S1", ""},
	), nil)
	if r := Build(s, 0); r.MatchesPerProfile != 2 {
		t.Errorf("MatchesPerProfile = %v, want 2 (divide by max(profiles,1))", r.MatchesPerProfile)
	}
}

func TestEnrichedPreservesMatchRows(t *testing.T) {
	r := Build(fullSession(), 0)
	if r.Enriched == nil {
		t.Fatal("Enriched is nil")
	}
	if r.Enriched.Len() != 4 {
		t.Errorf("enriched rows = %d, want 4", r.Enriched.Len())
	}
	// Colliding startup columns are suffixed with the right table name.
	if _, ok := r.Enriched.ColumnIndex("name_startups"); !ok {
		t.Errorf("enriched headers missing name_startups: %v", r.Enriched.Headers)
	}
	// Profile email attached on the row matched via P1.
	if got := r.Enriched.Cell(0, "email"); got != "ana@example.com" {
		t.Errorf("row 0 email = %q, want ana@example.com", got)
	}
}

func TestTopStartups(t *testing.T) {
	r := Build(fullSession(), 0)
	if len(r.TopStartups) != 2 {
		t.Fatalf("TopStartups = %v, want 2 entries", r.TopStartups)
	}
	if r.TopStartups[0].Key != "Acme" || r.TopStartups[0].Count != 2 {
		t.Errorf("top entry = %+v, want Acme/2", r.TopStartups[0])
	}
	if r.TopStartups[1].Key != "Beta" || r.TopStartups[1].Count != 1 {
		t.Errorf("second entry = %+v, want Beta/1", r.TopStartups[1])
	}
}

func TestTopStartupsTruncatedToTopN(t *testing.T) {
	r := Build(fullSession(), 1)
	if len(r.TopStartups) != 1 || r.TopStartups[0].Key != "Acme" {
		t.Errorf("TopStartups = %v, want only Acme", r.TopStartups)
	}
}

func TestInternalCrossExactIDs(t *testing.T) {
	s := fullSession()
	s.AddTable(TableInternal, tbl("internal",
		[]string{"id", "name"},
		[]string{"S1", "Acme"},
		[]string{"S9", "Other"},
	), nil)
	r := Build(s, 0)
	if r.Internal != 2 {
		t.Errorf("Internal = %d, want 2", r.Internal)
	}
	if r.IncubatedMatched != 1 {
		t.Errorf("IncubatedMatched = %d, want 1 (only S1 shared)", r.IncubatedMatched)
	}
}

func TestInternalCrossFuzzyNames(t *testing.T) {
	s := fullSession()
	// No id-like header on the internal table forces the name-based cross.
	s.AddTable(TableInternal, tbl("internal",
		[]string{"ref", "name"},
		[]string{"R1", "ACME"},     // exact after normalization
		[]string{"R2", "Grendell"}, // fuzzy, ratio 0.875
		[]string{"R3", "Unrelated"},
	), nil)
	r := Build(s, 0)
	if r.IncubatedMatched != 2 {
		t.Errorf("IncubatedMatched = %d, want 2", r.IncubatedMatched)
	}
}

func TestWeeklySeries(t *testing.T) {
	r := Build(fullSession(), 0)
	want := []WeekCount{
		{Week: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), Count: 2},
		{Week: time.Date(2023, 5, 8, 0, 0, 0, 0, time.UTC), Count: 1},
	}
	if len(r.Weekly) != len(want) {
		t.Fatalf("Weekly = %v, want %v", r.Weekly, want)
	}
	for i := range want {
		if !r.Weekly[i].Week.Equal(want[i].Week) || r.Weekly[i].Count != want[i].Count {
			t.Errorf("Weekly[%d] = %+v, want %+v", i, r.Weekly[i], want[i])
		}
	}
}

func TestUnresolvedDateProducesNotice(t *testing.T) {
	s := NewSession()
	s.AddTable(TableMatches, tbl("matches",
		[]string{"id", "profile_id", "startup_id"},
		[]string{"M1", "P1", "S1"},
	), nil)
	r := Build(s, 0)
	if len(r.Weekly) != 0 {
		t.Errorf("Weekly = %v, want empty", r.Weekly)
	}
	found := false
	for _, n := range r.Notices {
		if n.Table == TableMatches && n.Role == "date" {
			found = true
		}
	}
	if !found {
		t.Errorf("no matches/date notice among %v", r.Notices)
	}
}

func TestOverrideWinsOverGuess(t *testing.T) {
	s := fullSession()
	s.Override(TableStartups, "name", "secteur")
	if col, _ := s.Column(TableStartups, "name"); col != "secteur" {
		t.Fatalf("Column after override = %q, want secteur", col)
	}
	s.Override(TableStartups, "name", "")
	if col, _ := s.Column(TableStartups, "name"); col != "name" {
		t.Errorf("Column after clearing override = %q, want name", col)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2023-05-01", true, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"03/05/2023", true, time.Date(2023, 5, 3, 0, 0, 0, 0, time.UTC)},
		{"2023-05-01 10:30:00", true, time.Date(2023, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"yesterday", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := parseDate(tc.in)
		if ok != tc.ok {
			t.Errorf("parseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	// 2023-05-03 is a Wednesday; its week starts Monday 2023-05-01.
	got := weekStart(time.Date(2023, 5, 3, 15, 0, 0, 0, time.UTC))
	want := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("weekStart = %v, want %v", got, want)
	}
	// A Monday maps to itself.
	if got := weekStart(want); !got.Equal(want) {
		t.Errorf("weekStart(monday) = %v, want %v", got, want)
	}
	// Sunday belongs to the week that started six days earlier.
	got = weekStart(time.Date(2023, 5, 7, 0, 0, 0, 0, time.UTC))
	if !got.Equal(want) {
		t.Errorf("weekStart(sunday) = %v, want %v", got, want)
	}
}

func TestRenderIncludesNotices(t *testing.T) {
	s := NewSession()
	s.AddTable(TableMatches, tbl("matches",
		[]string{"id", "profile_id", "startup_id"},
		[]string{"M1", "P1", "S1"},
	), nil)
	r := Build(s, 0)
	var sb strings.Builder
	Render(&sb, r)
	out := sb.String()
	if !strings.Contains(out, "Relationships:       1") {
		t.Errorf("render missing relationship count:\n%s", out)
	}
	if !strings.Contains(out, "matches/date") {
		t.Errorf("render missing notice line:\n%s", out)
	}
}

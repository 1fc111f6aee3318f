package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/b33n-tech/club-suite-quest/internal/join"
	"github.com/b33n-tech/club-suite-quest/internal/table"
)

// DefaultTopN bounds the "top organizations by relationship count" list.
const DefaultTopN = 10

// Report is the KPI output of one run. Enriched is the joined relationship
// view backing the CSV download; it is nil when the matches table is absent.
type Report struct {
	Profiles int `json:"profiles"`
	Startups int `json:"startups"`
	Matches  int `json:"matches"`
	Internal int `json:"internal"`

	// MatchesPerProfile is matches / max(profiles, 1), rounded to 2 places.
	MatchesPerProfile float64 `json:"matches_per_profile"`

	TopStartups []join.KeyCount `json:"top_startups,omitempty"`

	// IncubatedMatched counts marketplace organizations that also appear in
	// the internal reference table; -1 when the cross was not computed.
	IncubatedMatched int `json:"incubated_matched"`

	Weekly []WeekCount `json:"weekly_matches,omitempty"`

	Notices []Notice `json:"notices,omitempty"`

	Enriched *table.Table `json:"-"`
}

// WeekCount is one point of the relationship time series. Week is the
// Monday the bucket starts on, UTC midnight.
type WeekCount struct {
	Week  time.Time `json:"week"`
	Count int       `json:"count"`
}

// Build computes the report from a session. It never fails: anything that
// cannot be computed is skipped and recorded as a notice. topN <= 0 falls
// back to DefaultTopN.
func Build(s *Session, topN int) *Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	r := &Report{IncubatedMatched: -1}

	if t, ok := s.Table(TableProfiles); ok {
		r.Profiles = t.Len()
	}
	if t, ok := s.Table(TableStartups); ok {
		r.Startups = t.Len()
	}
	if t, ok := s.Table(TableMatches); ok {
		r.Matches = t.Len()
	}
	if t, ok := s.Table(TableInternal); ok {
		r.Internal = t.Len()
	}
	r.MatchesPerProfile = round2(float64(r.Matches) / math.Max(float64(r.Profiles), 1))

	r.buildEnriched(s, topN)
	r.buildInternalCross(s)
	r.buildWeekly(s)
	return r
}

func (r *Report) notice(tbl, role, detail string) {
	r.Notices = append(r.Notices, Notice{Table: tbl, Role: role, Detail: detail})
}

// buildEnriched left-joins profiles then startups onto the matches table and
// derives the top-organizations aggregate from the result.
func (r *Report) buildEnriched(s *Session, topN int) {
	mct, ok := s.Table(TableMatches)
	if !ok {
		return
	}
	joined := mct

	if prof, ok := s.Table(TableProfiles); ok {
		lk, lok := s.Column(TableMatches, "profile_id")
		rk, rok := s.Column(TableProfiles, "id")
		switch {
		case !lok:
			r.notice(TableMatches, "profile_id", "unresolved, profile join skipped")
		case !rok:
			r.notice(TableProfiles, "id", "unresolved, profile join skipped")
		default:
			j, err := join.Left(joined, prof, lk, rk)
			if err != nil {
				r.notice(TableMatches, "profile_id", "profile join skipped: "+err.Error())
			} else {
				joined = j
			}
		}
	}

	stp, haveStartups := s.Table(TableStartups)
	if haveStartups {
		lk, lok := s.Column(TableMatches, "startup_id")
		rk, rok := s.Column(TableStartups, "id")
		switch {
		case !lok:
			r.notice(TableMatches, "startup_id", "unresolved, startup join skipped")
		case !rok:
			r.notice(TableStartups, "id", "unresolved, startup join skipped")
		default:
			j, err := join.Left(joined, stp, lk, rk)
			if err != nil {
				r.notice(TableMatches, "startup_id", "startup join skipped: "+err.Error())
			} else {
				joined = j
			}
		}
	}
	r.Enriched = joined

	if !haveStartups {
		return
	}
	nameCol, ok := s.Column(TableStartups, "name")
	if !ok {
		r.notice(TableStartups, "name", "unresolved, top organizations skipped")
		return
	}
	// The startup name column may have been suffixed on join collision.
	col := nameCol + "_" + stp.Name
	if _, ok := joined.ColumnIndex(col); !ok {
		col = nameCol
	}
	counts, err := join.CountByKey(joined, col)
	if err != nil {
		r.notice(TableStartups, "name", "top organizations skipped: "+err.Error())
		return
	}
	if len(counts) > topN {
		counts = counts[:topN]
	}
	r.TopStartups = counts
}

// buildInternalCross counts marketplace organizations matched against the
// internal reference table: exact id containment when both tables resolve
// the same id column name, else a fuzzy name join.
func (r *Report) buildInternalCross(s *Session) {
	stp, ok := s.Table(TableStartups)
	if !ok {
		return
	}
	intl, ok := s.Table(TableInternal)
	if !ok {
		return
	}

	stpID, sok := s.Column(TableStartups, "id")
	intID, iok := s.Column(TableInternal, "id")
	if sok && iok && stpID == intID {
		ids, _ := intl.Column(intID)
		known := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				known[id] = struct{}{}
			}
		}
		col, _ := stp.Column(stpID)
		matched := 0
		for _, id := range col {
			if _, ok := known[strings.TrimSpace(id)]; ok {
				matched++
			}
		}
		r.IncubatedMatched = matched
		return
	}

	stpName, sok := s.Column(TableStartups, "name")
	intName, iok := s.Column(TableInternal, "name")
	if !sok {
		r.notice(TableStartups, "name", "unresolved, internal cross skipped")
		return
	}
	if !iok {
		r.notice(TableInternal, "name", "unresolved, internal cross skipped")
		return
	}
	merged, err := join.Fuzzy(stp, intl, stpName, intName, 0)
	if err != nil {
		r.notice(TableStartups, "name", "internal cross skipped: "+err.Error())
		return
	}
	scores, _ := merged.Column(join.MatchScoreColumn)
	matched := 0
	for _, cell := range scores {
		if v, err := strconv.ParseFloat(cell, 64); err == nil && v > 0 {
			matched++
		}
	}
	r.IncubatedMatched = matched
}

// buildWeekly parses the matches date column leniently and buckets rows by
// week. Unparseable dates are skipped, not errors.
func (r *Report) buildWeekly(s *Session) {
	mct, ok := s.Table(TableMatches)
	if !ok {
		return
	}
	dateCol, ok := s.Column(TableMatches, "date")
	if !ok {
		r.notice(TableMatches, "date", "unresolved, weekly series skipped")
		return
	}
	cells, ok := mct.Column(dateCol)
	if !ok {
		r.notice(TableMatches, "date", fmt.Sprintf("column %q missing, weekly series skipped", dateCol))
		return
	}

	counts := map[time.Time]int{}
	for _, cell := range cells {
		ts, ok := parseDate(cell)
		if !ok {
			continue
		}
		counts[weekStart(ts)]++
	}
	if len(counts) == 0 {
		return
	}
	weeks := make([]WeekCount, 0, len(counts))
	for w, c := range counts {
		weeks = append(weeks, WeekCount{Week: w, Count: c})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Week.Before(weeks[j].Week) })
	r.Weekly = weeks
}

// dateLayouts covers the export formats seen in practice; day-first layouts
// come after ISO so unambiguous values parse as ISO.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// weekStart truncates to the Monday of t's week, UTC midnight.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Render writes the report as plain text for terminal consumption.
func Render(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Profiles:            %d\n", r.Profiles)
	fmt.Fprintf(w, "Organizations:       %d\n", r.Startups)
	fmt.Fprintf(w, "Relationships:       %d\n", r.Matches)
	fmt.Fprintf(w, "Internal reference:  %d\n", r.Internal)
	fmt.Fprintf(w, "Matches per profile: %.2f\n", r.MatchesPerProfile)
	if r.IncubatedMatched >= 0 {
		fmt.Fprintf(w, "Incubated (matched): %d / %d\n", r.IncubatedMatched, r.Startups)
	}

	if len(r.TopStartups) > 0 {
		fmt.Fprintln(w, "\nTop organizations by relationship count:")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		for _, kc := range r.TopStartups {
			fmt.Fprintf(tw, "  %s\t%d\n", kc.Key, kc.Count)
		}
		tw.Flush()
	}

	if len(r.Weekly) > 0 {
		fmt.Fprintln(w, "\nRelationships per week:")
		for _, wc := range r.Weekly {
			fmt.Fprintf(w, "  %s  %d\n", wc.Week.Format("2006-01-02"), wc.Count)
		}
	}

	if len(r.Notices) > 0 {
		fmt.Fprintln(w, "\nNotices:")
		for _, n := range r.Notices {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}
}

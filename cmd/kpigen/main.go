// Command kpigen is the one-shot report generator: it reads the CSV exports,
// guesses columns, resolves organization names against the persisted lexicon,
// and emits enriched CSVs plus the KPI report and notices.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/match"
	"github.com/b33n-tech/club-suite-quest/internal/metrics"
	"github.com/b33n-tech/club-suite-quest/internal/metrics/datadog"
	"github.com/b33n-tech/club-suite-quest/internal/report"
	"github.com/b33n-tech/club-suite-quest/internal/roles"
	"github.com/b33n-tech/club-suite-quest/internal/store"
	"github.com/b33n-tech/club-suite-quest/internal/table"

	// register all snapshot store backends with the factory.
	_ "github.com/b33n-tech/club-suite-quest/internal/store/all"
)

func main() {
	var (
		profilesPath string
		startupsPath string
		matchesPath  string
		internalPath string

		rolesPath     string
		overridesPath string

		storeKind string
		storeDSN  string

		threshold float64
		topN      int
		outDir    string
		jsonOut   string

		metricsBackendFlg string
		metricsTagsFlg    string
	)

	flag.StringVar(&profilesPath, "profiles", "", "profiles CSV path")
	flag.StringVar(&startupsPath, "startups", "", "organizations CSV path")
	flag.StringVar(&matchesPath, "matches", "", "relationship log CSV path")
	flag.StringVar(&internalPath, "internal", "", "internal reference CSV path (optional)")
	flag.StringVar(&rolesPath, "roles", "", "role alias config JSON path (optional, overrides built-ins)")
	flag.StringVar(&overridesPath, "overrides", "", "column override JSON path (optional, table -> role -> column)")
	flag.StringVar(&storeKind, "store", "file", "lexicon store backend (file, sqlite, postgres, mssql)")
	flag.StringVar(&storeDSN, "dsn", "lexicon.json", "store DSN: file path or connection string")
	flag.Float64Var(&threshold, "threshold", match.DefaultThreshold, "fuzzy merge threshold in [0,1]")
	flag.IntVar(&topN, "top", report.DefaultTopN, "size of the top-organizations list")
	flag.StringVar(&outDir, "out", ".", "directory for enriched CSV output")
	flag.StringVar(&jsonOut, "report-json", "", "also write the report as JSON to this path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend (none, datadog)")
	flag.StringVar(&metricsTagsFlg, "metrics-tags", "", "extra metric tags, comma separated")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if startupsPath == "" && matchesPath == "" {
		fatalf("at least one of -startups or -matches is required")
	}

	ctx := context.Background()
	start := time.Now()

	var mb metrics.Backend = metrics.Nop{}
	switch metricsBackendFlg {
	case "datadog":
		b := datadog.NewBackend(datadog.Options{
			JobName: "kpigen",
			Tags:    datadog.ParseTagsCSV(metricsTagsFlg),
		})
		defer func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: close/flush error: %v", err)
			}
		}()
		mb = b
	case "", "none":
	default:
		fatalf("unknown metrics backend %q", metricsBackendFlg)
	}

	aliasCfg := loadAliasConfig(rolesPath)
	overrides := loadOverrides(overridesPath)

	st, err := store.New(ctx, store.Config{Kind: storeKind, DSN: storeDSN})
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer st.Close()

	lex, err := st.Load(ctx)
	switch {
	case err == nil:
		if *verbose {
			log.Printf("lexicon: loaded %d entities from %s store", lex.Len(), storeKind)
		}
	case errors.Is(err, store.ErrNotExist):
		lex = lexicon.New()
		if *verbose {
			log.Printf("lexicon: no snapshot yet, starting empty")
		}
	default:
		// A malformed snapshot is fatal, never treated as empty.
		fatalf("load lexicon: %v", err)
	}

	sess := report.NewSession()
	inputs := []struct {
		kind, path string
	}{
		{report.TableProfiles, profilesPath},
		{report.TableStartups, startupsPath},
		{report.TableMatches, matchesPath},
		{report.TableInternal, internalPath},
	}
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		t := loadTable(ctx, in.kind, in.path)
		sess.AddTable(in.kind, t, aliasCfg[in.kind])
		mb.IncCounter(metrics.RowsTotal, float64(t.Len()), metrics.Labels{"table": in.kind})
		if *verbose {
			log.Printf("%s: %d rows, %d columns", in.kind, t.Len(), len(t.Headers))
		}
	}
	for kind, perRole := range overrides {
		for role, col := range perRole {
			sess.Override(kind, role, col)
		}
	}

	// Resolve organization-bearing name columns against the lexicon and
	// write the per-table enriched CSVs.
	for _, kind := range []string{report.TableStartups, report.TableInternal} {
		t, ok := sess.Table(kind)
		if !ok {
			continue
		}
		col, ok := sess.Column(kind, "name")
		if !ok {
			log.Printf("%s: name column unresolved, skipping entity resolution", kind)
			continue
		}
		values, ok := t.Column(col)
		if !ok {
			log.Printf("%s: column %q missing, skipping entity resolution", kind, col)
			continue
		}

		results, err := match.ResolveBatch(ctx, lex, values, threshold)
		if err != nil {
			fatalf("%s: resolve: %v", kind, err)
		}
		ids := make([]string, len(results))
		minted, merged := 0, 0
		for i, res := range results {
			ids[i] = res.CanonicalID
			if res.Minted {
				minted++
			} else if res.CanonicalID != "" && res.Score < 1.0 {
				merged++
			}
		}
		mb.IncCounter(metrics.EntitiesMintedTotal, float64(minted), metrics.Labels{"table": kind})
		mb.IncCounter(metrics.VariantsMergedTotal, float64(merged), metrics.Labels{"table": kind})
		log.Printf("%s: resolved %d values (%d new entities, %d variant merges)", kind, len(results), minted, merged)

		writeEnriched(filepath.Join(outDir, kind+"_enriched.csv"), t, ids)
	}

	if err := st.Save(ctx, lex); err != nil {
		fatalf("save lexicon: %v", err)
	}
	if *verbose {
		log.Printf("lexicon: saved %d entities", lex.Len())
	}

	rep := report.Build(sess, topN)
	for _, n := range rep.Notices {
		kind := n.Role
		if kind == "" {
			kind = n.Table
		}
		mb.IncCounter(metrics.NoticesTotal, 1, metrics.Labels{"kind": kind})
	}

	if rep.Enriched != nil {
		path := filepath.Join(outDir, "matches_enriched.csv")
		f, err := os.Create(path)
		if err != nil {
			fatalf("create %s: %v", path, err)
		}
		if err := table.WriteCSV(f, rep.Enriched); err != nil {
			f.Close()
			fatalf("write %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			fatalf("close %s: %v", path, err)
		}
	}

	if jsonOut != "" {
		f, err := os.Create(jsonOut)
		if err != nil {
			fatalf("create %s: %v", jsonOut, err)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			f.Close()
			fatalf("encode report: %v", err)
		}
		if err := f.Close(); err != nil {
			fatalf("close %s: %v", jsonOut, err)
		}
	}

	report.Render(os.Stdout, rep)
	mb.ObserveHistogram(metrics.RunDurationSeconds, time.Since(start).Seconds(), nil)
	if err := mb.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func loadTable(ctx context.Context, kind, path string) *table.Table {
	f, err := os.Open(path)
	if err != nil {
		fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	t, err := table.ReadCSV(ctx, f, kind, table.ReadCSVOptions{
		OnError: func(line int, err error) {
			log.Printf("%s: line %d skipped: %v", path, line, err)
		},
	})
	if err != nil {
		fatalf("read %s: %v", path, err)
	}
	return t
}

// loadAliasConfig decodes an optional role-alias config: table kind -> role
// -> ordered alias list. Kinds absent from the file keep the built-in set.
func loadAliasConfig(path string) map[string]roles.Aliases {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		fatalf("open roles config: %v", err)
	}
	defer f.Close()

	var cfg map[string]roles.Aliases
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		fatalf("decode roles config: %v", err)
	}
	return cfg
}

func loadOverrides(path string) map[string]map[string]string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		fatalf("open overrides: %v", err)
	}
	defer f.Close()

	var cfg map[string]map[string]string
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		fatalf("decode overrides: %v", err)
	}
	return cfg
}

func writeEnriched(path string, t *table.Table, ids []string) {
	f, err := os.Create(path)
	if err != nil {
		fatalf("create %s: %v", path, err)
	}
	if err := table.WriteEnrichedCSV(f, t, ids); err != nil {
		f.Close()
		fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		fatalf("close %s: %v", path, err)
	}
}

func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(1)
}

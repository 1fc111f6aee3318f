// Command lexicon maintains persisted lexicon snapshots: inspect entities,
// resolve a single CSV column against a snapshot, or migrate a snapshot
// between store backends.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/b33n-tech/club-suite-quest/internal/lexicon"
	"github.com/b33n-tech/club-suite-quest/internal/match"
	"github.com/b33n-tech/club-suite-quest/internal/store"
	"github.com/b33n-tech/club-suite-quest/internal/table"

	_ "github.com/b33n-tech/club-suite-quest/internal/store/all"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "inspect":
		runInspect(ctx, os.Args[2:])
	case "resolve":
		runResolve(ctx, os.Args[2:])
	case "migrate":
		runMigrate(ctx, os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lexicon <command> [flags]

commands:
  inspect  print the entities of a snapshot
  resolve  resolve one CSV column against a snapshot
  migrate  copy a snapshot between store backends`)
	os.Exit(2)
}

func runInspect(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	kind := fs.String("store", "file", "store backend kind")
	dsn := fs.String("dsn", "lexicon.json", "store DSN")
	fs.Parse(args)

	lex := mustLoad(ctx, *kind, *dsn)
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCANONICAL\tVARIANTS")
	for _, e := range lex.Entities() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.ID, e.CanonicalName, len(e.Variants))
	}
	tw.Flush()
	log.Printf("%d entities", lex.Len())
}

func runResolve(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	kind := fs.String("store", "file", "store backend kind")
	dsn := fs.String("dsn", "lexicon.json", "store DSN")
	in := fs.String("in", "", "input CSV path (required)")
	column := fs.String("column", "name", "column holding the values to resolve")
	threshold := fs.Float64("threshold", match.DefaultThreshold, "fuzzy merge threshold in [0,1]")
	save := fs.Bool("save", false, "persist the updated lexicon afterwards")
	fs.Parse(args)

	if *in == "" {
		fatalf("resolve: -in is required")
	}

	st, err := store.New(ctx, store.Config{Kind: *kind, DSN: *dsn})
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer st.Close()

	lex, err := st.Load(ctx)
	if errors.Is(err, store.ErrNotExist) {
		lex = lexicon.New()
	} else if err != nil {
		fatalf("load lexicon: %v", err)
	}

	f, err := os.Open(*in)
	if err != nil {
		fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	t, err := table.ReadCSV(ctx, f, "input", table.ReadCSVOptions{
		OnError: func(line int, err error) {
			log.Printf("%s: line %d skipped: %v", *in, line, err)
		},
	})
	if err != nil {
		fatalf("read %s: %v", *in, err)
	}
	values, ok := t.Column(*column)
	if !ok {
		fatalf("%s: no column %q (headers: %v)", *in, *column, t.Headers)
	}

	results, err := match.ResolveBatch(ctx, lex, values, *threshold)
	if err != nil {
		fatalf("resolve: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VALUE\tID\tSCORE")
	for _, r := range results {
		id := r.CanonicalID
		if id == "" {
			id = table.NotFound
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", r.Value, id, r.Score)
	}
	tw.Flush()

	if *save {
		if err := st.Save(ctx, lex); err != nil {
			fatalf("save lexicon: %v", err)
		}
		log.Printf("saved %d entities", lex.Len())
	}
}

func runMigrate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	fromKind := fs.String("from-store", "file", "source backend kind")
	fromDSN := fs.String("from-dsn", "lexicon.json", "source DSN")
	toKind := fs.String("to-store", "", "target backend kind (required)")
	toDSN := fs.String("to-dsn", "", "target DSN (required)")
	fs.Parse(args)

	if *toKind == "" || *toDSN == "" {
		fatalf("migrate: -to-store and -to-dsn are required")
	}

	lex := mustLoad(ctx, *fromKind, *fromDSN)

	dst, err := store.New(ctx, store.Config{Kind: *toKind, DSN: *toDSN})
	if err != nil {
		fatalf("open target store: %v", err)
	}
	defer dst.Close()

	if err := dst.Save(ctx, lex); err != nil {
		fatalf("save to target: %v", err)
	}
	log.Printf("migrated %d entities from %s to %s", lex.Len(), *fromKind, *toKind)
}

// mustLoad opens a store, loads the snapshot, and closes the store. A
// missing snapshot is fatal here: these commands operate on existing data.
func mustLoad(ctx context.Context, kind, dsn string) *lexicon.Lexicon {
	st, err := store.New(ctx, store.Config{Kind: kind, DSN: dsn})
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer st.Close()

	lex, err := st.Load(ctx)
	if errors.Is(err, store.ErrNotExist) {
		fatalf("no snapshot at %s (%s)", dsn, kind)
	} else if err != nil {
		fatalf("load lexicon: %v", err)
	}
	return lex
}

func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(1)
}

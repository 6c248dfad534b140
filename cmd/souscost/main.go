// souscost: usage and cost report over the sous database.
// Reads the usage_log table written by the cost ledger and prints a
// per-tier spend breakdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/config"
	"github.com/sous-ai/sous/internal/infra/ledger"
	"github.com/sous-ai/sous/internal/infra/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("souscost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	dbPath := fs.String("db", config.Load().DBPath, "Path to the sous database")
	user := fs.String("user", "", "Filter by user id (default: all users)")
	since := fs.Duration("since", 0, "Report window, e.g. 24h or 168h (default: all time)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(out, "usage: souscost [-db path] [-user id] [-since duration]") //nolint:errcheck
		return 2
	}

	db, err := sqlite.NewDB(*dbPath)
	if err != nil {
		fmt.Fprintf(out, "ERROR opening database: %v\n", err) //nolint:errcheck
		return 1
	}
	defer db.Close() //nolint:errcheck
	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "ERROR migrating database: %v\n", err) //nolint:errcheck
		return 1
	}

	var cutoff time.Time
	if *since > 0 {
		cutoff = time.Now().UTC().Add(-*since)
	}

	l := ledger.New(db, zerolog.Nop())
	summary, err := l.Summarize(context.Background(), *user, cutoff)
	if err != nil {
		fmt.Fprintf(out, "ERROR summarizing usage: %v\n", err) //nolint:errcheck
		return 1
	}

	printReport(out, summary, *user, *since)
	return 0
}

func printReport(out io.Writer, summary *ledger.Summary, user string, since time.Duration) {
	fmt.Fprintf(out, "=== Sous Usage Report ===\n") //nolint:errcheck
	if user != "" {
		fmt.Fprintf(out, "User: %s\n", user) //nolint:errcheck
	}
	if since > 0 {
		fmt.Fprintf(out, "Window: last %s\n", since) //nolint:errcheck
	}
	fmt.Fprintf(out, "Total calls: %d\n", summary.TotalCalls)       //nolint:errcheck
	fmt.Fprintf(out, "Total spend: $%.4f\n\n", summary.TotalCost)   //nolint:errcheck

	if len(summary.Tiers) == 0 {
		fmt.Fprintln(out, "No usage recorded.") //nolint:errcheck
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tCALLS\tFAILURES\tRETRIES\tTOKENS IN\tTOKENS OUT\tAVG MS\tSPEND") //nolint:errcheck
	for _, t := range summary.Tiers {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.0f\t$%.4f\n", //nolint:errcheck
			t.Tier, t.Calls, t.Failures, t.Retries,
			t.PromptTokens, t.CompletionTokens, t.AvgLatencyMs, t.Cost)
	}
	w.Flush() //nolint:errcheck
}

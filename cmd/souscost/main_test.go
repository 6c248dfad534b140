package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/ledger"
	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/sqlite"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sous.db")
	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close() //nolint:errcheck
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	l := ledger.New(db, zerolog.Nop())
	for i, evt := range []llm.CallEvent{
		{ID: "1", UserID: "u1", Tier: "quick", Model: "sous-quick", PromptTokens: 10, CompletionTokens: 5, CostEstimate: 0.001, Success: true},
		{ID: "2", UserID: "u2", Tier: "deep", Model: "sous-deep", PromptTokens: 400, CompletionTokens: 200, CostEstimate: 0.05, Success: true},
	} {
		evt.OccurredAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		evt.Latency = 150 * time.Millisecond
		if err := l.Record(context.Background(), evt); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	return dbPath
}

func TestRun_ReportListsTiersBySpend(t *testing.T) {
	t.Parallel()

	dbPath := seedDatabase(t)
	var out bytes.Buffer
	code := run([]string{"-db", dbPath}, &out)

	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, out.String())
	}
	report := out.String()
	if !strings.Contains(report, "Total calls: 2") {
		t.Errorf("missing totals: %q", report)
	}
	deepIdx := strings.Index(report, "deep")
	quickIdx := strings.Index(report, "quick")
	if deepIdx < 0 || quickIdx < 0 || deepIdx > quickIdx {
		t.Errorf("tiers not ordered by spend: %q", report)
	}
}

func TestRun_UserFilter(t *testing.T) {
	t.Parallel()

	dbPath := seedDatabase(t)
	var out bytes.Buffer
	code := run([]string{"-db", dbPath, "-user", "u1"}, &out)

	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, out.String())
	}
	report := out.String()
	if !strings.Contains(report, "Total calls: 1") {
		t.Errorf("filter did not apply: %q", report)
	}
	if strings.Contains(report, "deep") {
		t.Errorf("other user's tier leaked into report: %q", report)
	}
}

func TestRun_EmptyDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "fresh.db")
	var out bytes.Buffer
	code := run([]string{"-db", dbPath}, &out)

	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "No usage recorded.") {
		t.Errorf("expected empty notice: %q", out.String())
	}
}

func TestRun_BadFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if code := run([]string{"--nope"}, &out); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

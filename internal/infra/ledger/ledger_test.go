package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/eventbus"
	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/sqlite"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	return New(db, zerolog.Nop())
}

func event(id, user, tier string, cost float64, success bool) llm.CallEvent {
	return llm.CallEvent{
		ID:               id,
		UserID:           user,
		Tier:             tier,
		Model:            "sous-" + tier,
		PromptTokens:     100,
		CompletionTokens: 50,
		CostEstimate:     cost,
		Latency:          200 * time.Millisecond,
		Retries:          1,
		Success:          success,
		OccurredAt:       time.Now().UTC(),
	}
}

func TestLedger_RecordAndSummarize(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	for _, evt := range []llm.CallEvent{
		event("1", "u1", "quick", 0.001, true),
		event("2", "u1", "deep", 0.05, true),
		event("3", "u1", "deep", 0.04, false),
		event("4", "u2", "quick", 0.002, true),
	} {
		if err := l.Record(ctx, evt); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := l.Summarize(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if all.TotalCalls != 4 {
		t.Errorf("total calls = %d, want 4", all.TotalCalls)
	}
	// Ordered by spend: deep first.
	if all.Tiers[0].Tier != "deep" || all.Tiers[0].Calls != 2 || all.Tiers[0].Failures != 1 {
		t.Errorf("top tier = %+v", all.Tiers[0])
	}

	u1, err := l.Summarize(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("Summarize(u1): %v", err)
	}
	if u1.TotalCalls != 3 {
		t.Errorf("u1 calls = %d, want 3", u1.TotalCalls)
	}
}

func TestLedger_SummarizeSinceWindow(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	ctx := context.Background()

	old := event("1", "u1", "quick", 0.001, true)
	old.OccurredAt = time.Now().UTC().Add(-48 * time.Hour)
	recent := event("2", "u1", "quick", 0.001, true)

	if err := l.Record(ctx, old); err != nil {
		t.Fatalf("Record old: %v", err)
	}
	if err := l.Record(ctx, recent); err != nil {
		t.Fatalf("Record recent: %v", err)
	}

	s, err := l.Summarize(ctx, "", time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.TotalCalls != 1 {
		t.Errorf("calls in window = %d, want 1", s.TotalCalls)
	}
}

func TestLedger_ConsumesBusEvents(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t)
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Start(ctx, bus)
	bus.Publish(eventbus.TopicLLMCall, event("1", "u1", "standard", 0.01, true))

	deadline := time.After(2 * time.Second)
	for {
		s, err := l.Summarize(context.Background(), "", time.Time{})
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if s.TotalCalls == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("bus event never reached the ledger")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

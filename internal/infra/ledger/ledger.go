// Package ledger records per-call token and cost usage for quota
// enforcement and reporting. It consumes the inference client's call
// events off the event bus; it never influences routing at runtime.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/eventbus"
	"github.com/sous-ai/sous/internal/infra/llm"
)

// Ledger persists usage records in the usage_log table.
type Ledger struct {
	db  *sql.DB
	log zerolog.Logger
}

// New builds a Ledger over the migrated database.
func New(db *sql.DB, log zerolog.Logger) *Ledger {
	return &Ledger{
		db:  db,
		log: log.With().Str("component", "ledger").Logger(),
	}
}

// Record inserts one usage row.
func (l *Ledger) Record(ctx context.Context, evt llm.CallEvent) error {
	success := 0
	if evt.Success {
		success = 1
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO usage_log
			(id, user_id, tier, model, prompt_tokens, completion_tokens,
			 cost_estimate, latency_ms, retries, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.UserID, evt.Tier, evt.Model,
		evt.PromptTokens, evt.CompletionTokens,
		evt.CostEstimate, evt.Latency.Milliseconds(), evt.Retries, success,
		evt.OccurredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// Start consumes call events from the bus until ctx is done. Insert
// failures are logged and dropped; losing a usage row must never block
// an inference call.
func (l *Ledger) Start(ctx context.Context, bus eventbus.EventBus) {
	events := bus.Subscribe(eventbus.TopicLLMCall)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				call, ok := evt.Payload.(llm.CallEvent)
				if !ok {
					l.log.Warn().Str("topic", evt.Topic).Msg("unexpected payload type on llm.call")
					continue
				}
				if err := l.Record(ctx, call); err != nil {
					l.log.Warn().Err(err).Msg("dropping usage record")
				}
			}
		}
	}()
}

// TierUsage aggregates usage for one tier.
type TierUsage struct {
	Tier             string  `json:"tier"`
	Calls            int     `json:"calls"`
	Failures         int     `json:"failures"`
	Retries          int     `json:"retries"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
}

// Summary is a usage report over a window.
type Summary struct {
	Tiers      []TierUsage `json:"tiers"`
	TotalCalls int         `json:"total_calls"`
	TotalCost  float64     `json:"total_cost"`
}

// Summarize aggregates usage since the given time, optionally filtered
// by user (empty userID means all users). Tiers come back ordered by
// spend, highest first.
func (l *Ledger) Summarize(ctx context.Context, userID string, since time.Time) (*Summary, error) {
	query := `
		SELECT tier,
		       COUNT(*),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		       SUM(retries),
		       SUM(prompt_tokens),
		       SUM(completion_tokens),
		       SUM(cost_estimate),
		       AVG(latency_ms)
		FROM usage_log
		WHERE created_at >= ?`
	args := []any{since.UTC().Format(time.RFC3339Nano)}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " GROUP BY tier ORDER BY SUM(cost_estimate) DESC"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: summarize: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	summary := &Summary{}
	for rows.Next() {
		var t TierUsage
		if err := rows.Scan(&t.Tier, &t.Calls, &t.Failures, &t.Retries,
			&t.PromptTokens, &t.CompletionTokens, &t.Cost, &t.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("ledger: scan summary row: %w", err)
		}
		summary.Tiers = append(summary.Tiers, t)
		summary.TotalCalls += t.Calls
		summary.TotalCost += t.Cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: summarize rows: %w", err)
	}
	return summary, nil
}

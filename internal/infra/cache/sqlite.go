package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// durableLayer persists entries in the response_cache table. It survives
// restarts but expires by TTL only; there is no size cap.
type durableLayer struct {
	db *sql.DB
}

// get returns the value and expiry for key if present and unexpired,
// bumping the access counter. Expired rows are deleted on sight.
func (d *durableLayer) get(ctx context.Context, key string, now time.Time) ([]byte, time.Time, bool, error) {
	var (
		value     []byte
		expiresAt string
	)
	row := d.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM response_cache WHERE key = ?", key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("cache: durable get: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil || now.After(expiry) {
		_, _ = d.db.ExecContext(ctx, "DELETE FROM response_cache WHERE key = ?", key) //nolint:errcheck
		return nil, time.Time{}, false, nil
	}

	_, _ = d.db.ExecContext(ctx, //nolint:errcheck
		"UPDATE response_cache SET access_count = access_count + 1 WHERE key = ?", key)
	return value, expiry, true, nil
}

// set upserts an entry. An existing row for the same key is replaced and
// its access count reset.
func (d *durableLayer) set(ctx context.Context, key, taskType, tier string, value []byte, now, expiresAt time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO response_cache (key, task_type, tier, value, access_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			task_type = excluded.task_type,
			tier = excluded.tier,
			value = excluded.value,
			access_count = 0,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, taskType, tier, value,
		now.UTC().Format(time.RFC3339Nano),
		expiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache: durable set: %w", err)
	}
	return nil
}

// invalidate deletes rows whose task type matches the SQL LIKE pattern
// (e.g. "extract%" or "%" for everything). Returns the number removed.
func (d *durableLayer) invalidate(ctx context.Context, pattern string) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM response_cache WHERE task_type LIKE ?", pattern)
	if err != nil {
		return 0, fmt.Errorf("cache: durable invalidate: %w", err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck
	return n, nil
}

// purgeExpired removes all rows past their expiry. Called periodically
// so the table does not grow without bound between reads.
func (d *durableLayer) purgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM response_cache WHERE expires_at < ?",
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("cache: purge expired: %w", err)
	}
	n, _ := res.RowsAffected() //nolint:errcheck
	return n, nil
}

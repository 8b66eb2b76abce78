package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder appends access decisions and reads them back newest first.
// Implementations must be safe under concurrent writers. A write failure is
// reported to the caller but must never block or fail the query that
// triggered it; that trade-off (no audit-driven denial of service, but no
// completeness guarantee either) is deliberate.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
	Recent(ctx context.Context, limit int) ([]Decision, error)
}

// PGRecorder persists decisions in the audit_logs table.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder constructs a Recorder over the given pool.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

// Record appends one decision.
func (r *PGRecorder) Record(ctx context.Context, d Decision) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("audit: recorder not configured")
	}
	fill(&d)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, table_name, record_ids, query_text, rewritten_text, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.UserID, d.Action, d.Entity, d.RecordIDs, truncate(d.Query, 1000), truncate(d.Rewritten, 1000), string(d.Outcome), d.At)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (r *PGRecorder) Recent(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, action, table_name, record_ids, query_text, rewritten_text, outcome, created_at
		 FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var outcome string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Action, &d.Entity, &d.RecordIDs, &d.Query, &d.Rewritten, &outcome, &d.At); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		d.Outcome = Outcome(outcome)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	return out, nil
}

// MemoryRecorder keeps decisions in memory. Used in tests and as a fallback
// sink when no database is available; only the append is serialized.
type MemoryRecorder struct {
	mu        sync.Mutex
	decisions []Decision
	cap       int
}

// NewMemoryRecorder constructs an in-memory recorder bounded to capacity
// entries; zero means unbounded.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	return &MemoryRecorder{cap: capacity}
}

// Record appends one decision.
func (m *MemoryRecorder) Record(ctx context.Context, d Decision) error {
	fill(&d)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	if m.cap > 0 && len(m.decisions) > m.cap {
		m.decisions = m.decisions[len(m.decisions)-m.cap:]
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (m *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.decisions)
	if limit > n {
		limit = n
	}
	out := make([]Decision, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.decisions[i])
	}
	return out, nil
}

var (
	_ Recorder = (*PGRecorder)(nil)
	_ Recorder = (*MemoryRecorder)(nil)
)

func fill(d *Decision) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.At.IsZero() {
		d.At = time.Now().UTC()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

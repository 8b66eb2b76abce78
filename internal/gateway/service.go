// Package gateway is the façade the external agent calls. It composes the
// injection guard, the policy engine, the statement executor and the audit
// recorder into the mediated query operations.
package gateway

import (
	"context"
	"log/slog"

	"github.com/leadgate/leadgate/internal/audit"
	"github.com/leadgate/leadgate/internal/auth"
	"github.com/leadgate/leadgate/internal/guard"
	"github.com/leadgate/leadgate/internal/leads"
	"github.com/leadgate/leadgate/internal/observability"
	"github.com/leadgate/leadgate/internal/policy"
)

// Executor is the injected relational engine. Statements handed to it have
// already been authorized; its failures are user errors, not security events.
type Executor interface {
	Execute(ctx context.Context, stmt string) (leads.Table, error)
	Describe(ctx context.Context, table string) (leads.Table, error)
}

// Result is the closed outcome variant of one mediated operation. Callers
// branch on Allowed; Reason is only populated on refusal or failure.
type Result struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	RowIDs   []int64  `json:"row_ids,omitempty"`
	Filtered bool     `json:"filtered"`
	Notice   string   `json:"notice,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Service orchestrates Guard -> Engine -> Executor -> Recorder for every
// operation. It holds no per-request state and is safe for concurrent use.
type Service struct {
	guard    *guard.Detector
	engine   *policy.Engine
	executor Executor
	recorder audit.Recorder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService constructs the mediated query gateway.
func NewService(g *guard.Detector, engine *policy.Engine, executor Executor, recorder audit.Recorder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		guard:    g,
		engine:   engine,
		executor: executor,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// RunStatement mediates a caller-supplied statement. The text is untrusted:
// it passes the guard first and the database is never touched on a guard or
// policy refusal.
func (s *Service) RunStatement(ctx context.Context, user *auth.User, stmt string) Result {
	cleaned, warnings, err := s.guard.Sanitize(stmt)
	if err != nil {
		rej, _ := guard.AsRejection(err)
		s.metrics.RecordGuardBlock(rej.Verdict.Category)
		s.record(ctx, audit.Decision{
			UserID:  user.ID,
			Action:  "query",
			Entity:  "leads",
			Query:   stmt,
			Outcome: audit.OutcomeBlocked,
		})
		s.metrics.RecordQuery(string(audit.OutcomeBlocked))
		return Result{Allowed: false, Reason: rej.Verdict.Reason}
	}

	return s.execute(ctx, user, "query", policy.Intent{Op: policy.OpStatement, Statement: cleaned}, warnings)
}

// MyLeads lists the acting user's visible leads through the fixed template
// path; no free text is involved so the guard is not consulted.
func (s *Service) MyLeads(ctx context.Context, user *auth.User) Result {
	return s.execute(ctx, user, "my_leads", policy.Intent{Op: policy.OpMyLeads}, nil)
}

// TeamLeads lists leads across the team; the engine refuses it for roles
// without the view-all capability.
func (s *Service) TeamLeads(ctx context.Context, user *auth.User) Result {
	return s.execute(ctx, user, "team_leads", policy.Intent{Op: policy.OpTeamLeads}, nil)
}

// DescribeTable returns the structure of a table from an allowlist. Schema
// metadata carries no row data, but the table name is still untrusted input
// and never interpolated into SQL.
func (s *Service) DescribeTable(ctx context.Context, user *auth.User, table string) Result {
	if !describeAllowed(user.Role, table) {
		s.record(ctx, audit.Decision{
			UserID:  user.ID,
			Action:  "describe",
			Entity:  table,
			Outcome: audit.OutcomeBlocked,
		})
		s.metrics.RecordQuery(string(audit.OutcomeBlocked))
		return Result{Allowed: false, Reason: "table is not available for inspection"}
	}

	result, err := s.executor.Describe(ctx, table)
	if err != nil {
		s.record(ctx, audit.Decision{UserID: user.ID, Action: "describe", Entity: table, Outcome: audit.OutcomeError})
		s.metrics.RecordQuery(string(audit.OutcomeError))
		return Result{Allowed: false, Reason: "describe failed: " + err.Error()}
	}

	s.record(ctx, audit.Decision{UserID: user.ID, Action: "describe", Entity: table, Outcome: audit.OutcomeAllowed})
	s.metrics.RecordQuery(string(audit.OutcomeAllowed))
	return Result{Allowed: true, Columns: result.Columns, Rows: result.Rows}
}

// execute runs the authorize -> execute -> record tail shared by all lead
// operations.
func (s *Service) execute(ctx context.Context, user *auth.User, action string, intent policy.Intent, warnings []string) Result {
	subject := policy.Subject{ID: user.ID, Role: user.Role}
	authorized, err := s.engine.Authorize(subject, intent)
	if err != nil {
		reason := "could not authorize the request"
		if rej, ok := policy.AsRejection(err); ok {
			reason = "request refused: " + string(rej.Reason)
		}
		s.record(ctx, audit.Decision{
			UserID:  user.ID,
			Action:  action,
			Entity:  "leads",
			Query:   intent.Statement,
			Outcome: audit.OutcomeBlocked,
		})
		s.metrics.RecordQuery(string(audit.OutcomeBlocked))
		return Result{Allowed: false, Reason: reason, Warnings: warnings}
	}

	table, err := s.executor.Execute(ctx, authorized.Text)
	if err != nil {
		s.record(ctx, audit.Decision{
			UserID:    user.ID,
			Action:    action,
			Entity:    "leads",
			Query:     intent.Statement,
			Rewritten: authorized.Text,
			Outcome:   audit.OutcomeError,
		})
		s.metrics.RecordQuery(string(audit.OutcomeError))
		return Result{Allowed: false, Reason: "query failed: " + err.Error(), Warnings: warnings}
	}

	rowIDs := extractRowIDs(table)
	s.record(ctx, audit.Decision{
		UserID:    user.ID,
		Action:    action,
		Entity:    "leads",
		RecordIDs: rowIDs,
		Query:     intent.Statement,
		Rewritten: authorized.Text,
		Outcome:   audit.OutcomeAllowed,
	})
	s.metrics.RecordQuery(string(audit.OutcomeAllowed))

	notice := "Showing all leads in the database."
	if authorized.Filtered {
		notice = "Showing only your assigned leads."
	}
	return Result{
		Allowed:  true,
		Columns:  table.Columns,
		Rows:     table.Rows,
		RowIDs:   rowIDs,
		Filtered: authorized.Filtered,
		Notice:   notice,
		Warnings: warnings,
	}
}

// record appends the decision best-effort: a failing audit sink is logged and
// counted but never fails the originating query.
func (s *Service) record(ctx context.Context, d audit.Decision) {
	if err := s.recorder.Record(ctx, d); err != nil {
		s.metrics.RecordAuditFailure()
		s.logger.Warn("audit write failed", slog.String("action", d.Action), slog.Any("error", err))
	}
}

// extractRowIDs collects the ids actually returned, not the rows requested.
func extractRowIDs(table leads.Table) []int64 {
	idx := -1
	for i, col := range table.Columns {
		if col == "id" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	ids := make([]int64, 0, len(table.Rows))
	for _, row := range table.Rows {
		if idx >= len(row) {
			continue
		}
		if id, ok := asInt64(row[idx]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// describeAllowed limits schema inspection to the CRM tables; operational
// tables are visible to admins only.
func describeAllowed(role policy.Role, table string) bool {
	switch table {
	case "leads", "lead_assignments":
		return true
	case "users", "roles", "audit_logs":
		return role == policy.RoleAdmin
	}
	return false
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/leadgate/leadgate/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditExport is the task type for the periodic audit export.
	TaskAuditExport = "audit:export"
)

// AuditExportPayload bounds how much of the trail one export run reads.
type AuditExportPayload struct {
	Limit int `json:"limit"`
}

// NewAuditExportTask constructs an Asynq task.
func NewAuditExportTask(payload AuditExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditExport, data), nil
}

// AuditExporter summarises recent access decisions for operators. It reads
// through the Recorder interface only; the trail itself is never mutated
// here (retention is handled outside the application).
type AuditExporter struct {
	Recorder audit.Recorder
	Logger   *slog.Logger
}

// Handle processes TaskAuditExport tasks.
func (e *AuditExporter) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 500
	}

	decisions, err := e.Recorder.Recent(ctx, payload.Limit)
	if err != nil {
		return err
	}

	byOutcome := make(map[audit.Outcome]int)
	for _, d := range decisions {
		byOutcome[d.Outcome]++
	}
	e.Logger.Info("audit export",
		slog.Int("decisions", len(decisions)),
		slog.Int("allowed", byOutcome[audit.OutcomeAllowed]),
		slog.Int("blocked", byOutcome[audit.OutcomeBlocked]),
		slog.Int("errors", byOutcome[audit.OutcomeError]),
	)
	return nil
}

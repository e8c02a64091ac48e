package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/audit"
	jobmetrics "github.com/scholaris-edu/scholaris/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuditExportJob renders a permission-audit window to a CSV file in the
// configured export directory.
type AuditExportJob struct {
	service *audit.Service
	dir     string
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewAuditExportJob constructs the job handler.
func NewAuditExportJob(service *audit.Service, dir string, logger *slog.Logger) *AuditExportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditExportJob{service: service, dir: dir, logger: logger, metrics: defaultJobMetrics, now: time.Now}
}

// Handle processes one export task.
func (j *AuditExportJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload AuditExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("audit export payload: %w: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics.Track(TaskAuditExport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	records, err := j.service.Export(ctx, audit.QueryFilters{
		ActorID:  payload.ActorID,
		TargetID: payload.TargetID,
		From:     payload.From,
		To:       payload.To,
	})
	if err != nil {
		resultErr = fmt.Errorf("audit export query: %w", err)
		return resultErr
	}
	data, err := audit.WriteCSV(records)
	if err != nil {
		resultErr = fmt.Errorf("audit export render: %w", err)
		return resultErr
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		resultErr = fmt.Errorf("audit export dir: %w", err)
		return resultErr
	}
	name := fmt.Sprintf("permission-audit-%s.csv", j.now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(j.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		resultErr = fmt.Errorf("audit export write: %w", err)
		return resultErr
	}
	j.logger.Info("audit export written",
		slog.String("path", path),
		slog.Int("records", len(records)))
	return resultErr
}

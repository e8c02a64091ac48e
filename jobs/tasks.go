package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditExport writes a CSV export of a permission-audit window.
	TaskAuditExport = "audit:export"
	// TaskGrantCacheWarmup refreshes the effective-permission cache for
	// active identities.
	TaskGrantCacheWarmup = "authz:cache_warmup"
)

// AuditExportPayload describes the audit window to export.
type AuditExportPayload struct {
	ActorID  int64     `json:"actor_id,omitempty"`
	TargetID int64     `json:"target_id,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
}

// NewAuditExportTask constructs an Asynq task.
func NewAuditExportTask(payload AuditExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditExport, data), nil
}

// GrantCacheWarmupPayload carries no parameters today; the struct keeps the
// wire format extensible.
type GrantCacheWarmupPayload struct{}

// NewGrantCacheWarmupTask constructs an Asynq task.
func NewGrantCacheWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(GrantCacheWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantCacheWarmup, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueExport enqueues an audit export for the given window. Implements
// the audit handler's Enqueuer contract.
func (c *Client) EnqueueExport(ctx context.Context, filters audit.QueryFilters) (string, error) {
	task, err := NewAuditExportTask(AuditExportPayload{
		ActorID:  filters.ActorID,
		TargetID: filters.TargetID,
		From:     filters.From,
		To:       filters.To,
	})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

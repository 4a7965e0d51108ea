// Package ops holds the operational helpers behind fometctl.
package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/fomet/fomet/jobs"
)

// JobsOps wraps manual management helpers for Asynq jobs.
type JobsOps struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsOps initialises the helpers against the given Redis connection.
func NewJobsOps(redisOpts asynq.RedisClientOpt) *JobsOps {
	return &JobsOps{client: asynq.NewClient(redisOpts), inspector: asynq.NewInspector(redisOpts)}
}

// Close releases underlying resources.
func (c *JobsOps) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name.
func (c *JobsOps) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("ops: job client not configured")
	}
	task, err := TaskByName(name)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// TaskByName builds the task for a job name accepted by Trigger.
func TaskByName(name string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskReferenceRefresh, "reference":
		return jobs.NewReferenceRefreshTask("manual")
	default:
		return nil, fmt.Errorf("ops: unsupported job %q", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Failed    int    `json:"failed"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsOps) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("ops: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
		stats.Failed = int(info.Failed)
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos.
func (c *JobsOps) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("ops: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

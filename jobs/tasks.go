package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReferenceRefresh reloads the tariff and meter catalogues into the cache.
	TaskReferenceRefresh = "reference:refresh"
)

// ReferenceRefreshPayload describes why a refresh was requested.
type ReferenceRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewReferenceRefreshTask constructs an Asynq task. An empty reason defaults to "scheduled".
func NewReferenceRefreshTask(reason string) (*asynq.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(ReferenceRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferenceRefresh, data), nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fomet/fomet/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Refresher reloads reference data into the shared cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ReferenceRefreshJob keeps the tariff and KWH catalogues warm so dashboard
// loads rarely wait on the backend for them.
type ReferenceRefreshJob struct {
	Reference Refresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewReferenceRefreshJob wires dependencies for the refresh handler.
func NewReferenceRefreshJob(reference Refresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReferenceRefreshJob {
	return &ReferenceRefreshJob{
		Reference: reference,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   60 * time.Second,
	}
}

// Handle processes reference refresh tasks.
func (j *ReferenceRefreshJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reference == nil {
		return errors.New("reference refresh: handler not configured")
	}
	var payload ReferenceRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReferenceRefresh)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	logger.Info("starting reference refresh")
	start := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	if err := j.Reference.Refresh(ctx); err != nil {
		logger.Error("reference refresh", slog.Any("error", err))
		return err
	}

	logger.Info("completed reference refresh", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReferenceRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReferenceRefresh))
	}
	return slog.Default().With(slog.String("job", TaskReferenceRefresh))
}

func (j *ReferenceRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

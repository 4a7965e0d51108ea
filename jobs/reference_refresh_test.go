package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fomet/fomet/internal/jobs"
)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) error {
	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected deadline")
	}
	return s.err
}

func TestReferenceRefreshJobHandle(t *testing.T) {
	ref := &stubRefresher{}
	job := NewReferenceRefreshJob(ref, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReferenceRefreshTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, ref.calls)
	assert.JSONEq(t, `{"reason":"scheduled"}`, string(task.Payload()))
}

func TestReferenceRefreshJobPropagatesError(t *testing.T) {
	ref := &stubRefresher{err: errors.New("backend down")}
	job := NewReferenceRefreshJob(ref, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewReferenceRefreshTask("manual")
	require.NoError(t, err)
	assert.EqualError(t, job.Handle(context.Background(), task), "backend down")
}

func TestReferenceRefreshJobRejectsBadPayload(t *testing.T) {
	ref := &stubRefresher{}
	job := NewReferenceRefreshJob(ref, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReferenceRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, ref.calls)
}

func TestReferenceRefreshJobNotConfigured(t *testing.T) {
	var job *ReferenceRefreshJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskReferenceRefresh, nil)))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

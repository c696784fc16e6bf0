package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/pos/shifts"
)

type stubLedger struct {
	entries []journals.UnbalancedEntry
	err     error
}

func (s stubLedger) FindUnbalanced(context.Context) ([]journals.UnbalancedEntry, error) {
	return s.entries, s.err
}

type stubShifts struct {
	shifts []shifts.Shift
	maxAge time.Duration
}

func (s *stubShifts) ListStaleShifts(_ context.Context, maxAge time.Duration) ([]shifts.Shift, error) {
	s.maxAge = maxAge
	return s.shifts, nil
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[family.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[family.GetName()] += metric.GetCounter().GetValue()
			}
		}
	}
	return values
}

func TestGLIntegrityJobReportsUnbalancedEntries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewGLIntegrityJob(stubLedger{entries: []journals.UnbalancedEntry{
		{EntryID: 7, Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(90)},
		{EntryID: 9, Debit: decimal.Zero, Credit: decimal.NewFromInt(5)},
	}}, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), NewGLIntegrityTask()))

	values := gather(t, reg)
	require.Equal(t, float64(2), values["odyssey_gl_unbalanced_entries"])
	require.Equal(t, float64(1), values["odyssey_jobs_total"])
	require.Zero(t, values["odyssey_jobs_failures_total"])
}

func TestGLIntegrityJobCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	boom := errors.New("db down")
	job := NewGLIntegrityJob(stubLedger{err: boom}, nil, metrics)

	err := job.Handle(context.Background(), NewGLIntegrityTask())
	require.ErrorIs(t, err, boom)
	require.Equal(t, float64(1), gather(t, reg)["odyssey_jobs_failures_total"])
}

func TestGLIntegrityJobRequiresLedger(t *testing.T) {
	var job *GLIntegrityJob
	require.Error(t, job.Handle(context.Background(), NewGLIntegrityTask()))
}

func TestStaleShiftsJobUsesPayloadThreshold(t *testing.T) {
	reg := prometheus.NewRegistry()
	lister := &stubShifts{shifts: []shifts.Shift{{ID: 3, CompanyID: 1, BranchID: 2, UserID: 4, Status: shifts.StatusOpen}}}
	job := NewStaleShiftsJob(lister, 12*time.Hour, nil, jobmetrics.NewMetrics(reg))

	task, err := NewStaleShiftsTask(2 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 2*time.Hour, lister.maxAge)
	require.Equal(t, float64(1), gather(t, reg)["odyssey_pos_stale_shifts"])
}

func TestStaleShiftsJobFallsBackToConfiguredThreshold(t *testing.T) {
	lister := &stubShifts{}
	job := NewStaleShiftsJob(lister, 12*time.Hour, nil, nil)

	task, err := NewStaleShiftsTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 12*time.Hour, lister.maxAge)
}

func TestStaleShiftsJobSkipsMalformedPayload(t *testing.T) {
	job := NewStaleShiftsJob(&stubShifts{}, time.Hour, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskStaleShifts, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
}

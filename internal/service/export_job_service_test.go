package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timegrid-api/internal/dto"
	"github.com/noah-isme/timegrid-api/internal/generator"
	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/repository"
	"github.com/noah-isme/timegrid-api/pkg/jobs"
)

type exportJobRepoStub struct {
	mu          sync.Mutex
	jobs        map[string]*models.ExportJob
	interrupted int64
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *exportJobRepoStub) FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued || job.Status == models.ExportStatusProcessing {
			msg := message
			finished := at
			job.Status = models.ExportStatusFailed
			job.ErrorMessage = &msg
			job.FinishedAt = &finished
			n++
		}
	}
	r.interrupted += n
	return n, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ExportJob, snapshot *SessionSnapshot) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type exportFixture struct {
	svc       *ExportJobService
	timetable *TimetableService
	exporter  *ExportService
	repo      *exportJobRepoStub
	queue     *queueStub
	metrics   *MetricsService
	sessionID string
}

func newExportFixture(t *testing.T, result *generator.Result, tokenTTL time.Duration) exportFixture {
	t.Helper()
	fx := newTimetableFixture(t, result)
	resp, err := fx.svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	exporter, _ := newExportServiceForTest(t, tokenTTL)
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	svc := NewExportJobService(repo, fx.svc, queue, exporter, fx.metrics, nil, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return exportFixture{
		svc:       svc,
		timetable: fx.svc,
		exporter:  exporter,
		repo:      repo,
		queue:     queue,
		metrics:   fx.metrics,
		sessionID: resp.SessionID,
	}
}

func TestExportJobServiceCreateJob(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)

	resp, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{
		Format: models.ExportFormatCSV,
		View:   models.ExportViewLevel,
		Levels: []string{"100"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, fx.queue.jobs, 1)
	assert.Equal(t, resp.ID, fx.queue.jobs[0].ID)
	snapshot, ok := fx.queue.jobs[0].Payload.(*SessionSnapshot)
	require.True(t, ok)
	assert.Equal(t, fx.sessionID, snapshot.ID)

	stored := fx.repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "Science", stored.Params.Faculty)
	assert.Equal(t, []string{"100"}, stored.Params.Levels)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)

	_, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{Format: "xlsx", View: models.ExportViewLevel})
	requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)

	_, err = fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{
		Format: models.ExportFormatCSV,
		View:   models.ExportViewLevel,
		Levels: []string{"900"},
	})
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)

	_, err = fx.svc.CreateJob(context.Background(), "missing", dto.ExportRequest{Format: models.ExportFormatCSV, View: models.ExportViewLevel})
	requireAppError(t, err, "SESSION_NOT_FOUND", http.StatusNotFound)
	assert.Empty(t, fx.queue.jobs)
}

func TestExportJobServiceCreateJobConflictGate(t *testing.T) {
	fx := newExportFixture(t, conflictedResult(), time.Hour)
	req := dto.ExportRequest{Format: models.ExportFormatPDF, View: models.ExportViewFaculty}

	_, err := fx.svc.CreateJob(context.Background(), fx.sessionID, req)
	appErr := requireAppError(t, err, "SCHEDULE_HAS_CONFLICTS", http.StatusConflict)
	assert.NotEmpty(t, appErr.Details)
	assert.Empty(t, fx.queue.jobs)

	req.AllowConflicts = true
	_, err = fx.svc.CreateJob(context.Background(), fx.sessionID, req)
	require.NoError(t, err)
	assert.Len(t, fx.queue.jobs, 1)
}

func TestExportJobServiceEnqueueFailureMarksFailed(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	fx.queue.err = jobs.ErrQueueStopped

	_, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{Format: models.ExportFormatCSV, View: models.ExportViewLevel})
	requireAppError(t, err, "INTERNAL_ERROR", http.StatusInternalServerError)
	require.Len(t, fx.repo.jobs, 1)
	for _, job := range fx.repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceEndToEndDownload(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	resp, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{Format: models.ExportFormatCSV, View: models.ExportViewFaculty})
	require.NoError(t, err)

	worker := NewExportWorker(fx.repo, fx.exporter, fx.metrics, 2, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), fx.queue.jobs[0]))

	status, err := fx.svc.GetStatus(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.Nil(t, status.Error)

	token := extractToken(*status.ResultURL)
	download, err := fx.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.Equal(t, ".csv", filepath.Ext(download.Filename))

	_, err = fx.svc.ResolveDownload(context.Background(), token+"x")
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestExportJobServiceExpiredDownload(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Nanosecond)
	_, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{Format: models.ExportFormatCSV, View: models.ExportViewLevel})
	require.NoError(t, err)

	worker := NewExportWorker(fx.repo, fx.exporter, fx.metrics, 0, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), fx.queue.jobs[0]))
	job := fx.repo.jobs[fx.queue.jobs[0].ID]
	require.NotNil(t, job.ResultURL)

	_, err = fx.svc.ResolveDownload(context.Background(), extractToken(*job.ResultURL))
	requireAppError(t, err, "GONE", http.StatusGone)
}

func TestExportJobServiceGetStatusNotFound(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	_, err := fx.svc.GetStatus(context.Background(), "missing")
	requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatPDF}}
	metrics := NewMetricsService()
	worker := NewExportWorker(repo, exportStub{err: errors.New("render failed")}, metrics, 1, zap.NewNop())
	job := jobs.Job{ID: "job-1", Payload: &SessionSnapshot{}}

	err := worker.Handle(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].ErrorMessage)
	assert.Equal(t, "render failed", *repo.jobs["job-1"].ErrorMessage)

	job.Attempt = 1
	err = worker.Handle(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
}

func TestExportWorkerMissingSnapshotFailsJob(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued}
	worker := NewExportWorker(repo, exportStub{}, nil, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}

func TestExportJobServiceHandleExhausted(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	fx.repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusProcessing}

	fx.svc.HandleExhausted(jobs.Job{ID: "job-1"}, errors.New("queue stopped"))
	assert.Equal(t, models.ExportStatusFailed, fx.repo.jobs["job-1"].Status)
	require.NotNil(t, fx.repo.jobs["job-1"].ErrorMessage)
	assert.Equal(t, "queue stopped", *fx.repo.jobs["job-1"].ErrorMessage)
}

func TestExportJobServiceRecoverInterrupted(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	fx.repo.jobs["a"] = &models.ExportJob{ID: "a", Status: models.ExportStatusQueued}
	fx.repo.jobs["b"] = &models.ExportJob{ID: "b", Status: models.ExportStatusProcessing}
	fx.repo.jobs["c"] = &models.ExportJob{ID: "c", Status: models.ExportStatusFinished}

	fx.svc.RecoverInterrupted(context.Background())
	assert.EqualValues(t, 2, fx.repo.interrupted)
	assert.Equal(t, models.ExportStatusFailed, fx.repo.jobs["a"].Status)
	assert.Equal(t, models.ExportStatusFailed, fx.repo.jobs["b"].Status)
	assert.Equal(t, models.ExportStatusFinished, fx.repo.jobs["c"].Status)
}

func TestExportJobServiceCleanupExpired(t *testing.T) {
	fx := newExportFixture(t, cleanResult(), time.Hour)
	_, err := fx.svc.CreateJob(context.Background(), fx.sessionID, dto.ExportRequest{Format: models.ExportFormatCSV, View: models.ExportViewLevel})
	require.NoError(t, err)
	worker := NewExportWorker(fx.repo, fx.exporter, fx.metrics, 0, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), fx.queue.jobs[0]))

	job := fx.repo.jobs[fx.queue.jobs[0].ID]
	old := time.Now().Add(-2 * time.Hour)
	job.FinishedAt = &old
	token := extractToken(*job.ResultURL)
	claims, err := fx.exporter.ParseToken(token, true)
	require.NoError(t, err)

	fx.svc.CleanupExpired(context.Background())
	_, err = fx.exporter.Open(claims.Path)
	assert.Error(t, err)

	_, err = fx.svc.ResolveDownload(context.Background(), token)
	requireAppError(t, err, "GONE", http.StatusGone)
}

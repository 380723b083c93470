package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timegrid-api/internal/dto"
	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/repository"
	appErrors "github.com/noah-isme/timegrid-api/pkg/errors"
	"github.com/noah-isme/timegrid-api/pkg/jobs"
	"github.com/noah-isme/timegrid-api/pkg/storage"
)

const interruptedJobMessage = "export interrupted by server restart"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
	FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error)
}

type sessionSnapshotter interface {
	Snapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob, snapshot *SessionSnapshot) (*ExportResult, error)
}

// ExportJobServiceConfig governs cleanup of finished exports.
type ExportJobServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService orchestrates the export job lifecycle.
type ExportJobService struct {
	repo     exportJobStore
	sessions sessionSnapshotter
	queue    jobDispatcher
	exporter *ExportService
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      ExportJobServiceConfig
}

// NewExportJobService constructs the export job service.
func NewExportJobService(
	repo exportJobStore,
	sessions sessionSnapshotter,
	queue jobDispatcher,
	exporter *ExportService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportJobServiceConfig,
) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &ExportJobService{
		repo:     repo,
		sessions: sessions,
		queue:    queue,
		exporter: exporter,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
		cfg:      cfg,
	}
}

// SetQueue attaches the dispatcher once the worker queue exists.
func (s *ExportJobService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob snapshots the session, persists a job row and enqueues rendering.
func (s *ExportJobService) CreateJob(ctx context.Context, sessionID string, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	snapshot, err := s.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Conflicts) > 0 && !req.AllowConflicts {
		return nil, appErrors.WithDetails(
			appErrors.Clone(errHasConflicts, fmt.Sprintf("schedule has %d unresolved conflicts", len(snapshot.Conflicts))),
			conflictViews(snapshot.Conflicts),
		)
	}
	if _, err := exportLevels(snapshot.Schedule, req.Levels); err != nil {
		return nil, engineError(err)
	}

	job := &models.ExportJob{
		SessionID: sessionID,
		Params: models.ExportJobParams{
			Format:         req.Format,
			View:           req.View,
			Levels:         req.Levels,
			Faculty:        snapshot.Faculty,
			Semester:       snapshot.Semester,
			Session:        snapshot.Session,
			AllowConflicts: req.AllowConflicts,
		},
		Status:   models.ExportStatusQueued,
		Progress: 0,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	s.metrics.RecordExportJob(job.Params.Format, models.ExportStatusQueued)

	if s.queue == nil {
		s.markFailed(ctx, job, "export queue unavailable")
		return nil, appErrors.Clone(appErrors.ErrInternal, "failed to enqueue export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Params.Format), Payload: snapshot}); err != nil {
		s.markFailed(ctx, job, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Info("export job queued",
		zap.String("job_id", job.ID),
		zap.String("session_id", sessionID),
		zap.String("format", string(job.Params.Format)),
		zap.String("view", string(job.Params.View)),
	)
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to clients.
func (s *ExportJobService) GetStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.exporter.ParseToken(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrGone, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link not found")
	}
	job, err := s.load(ctx, claims.JobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link not found")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export not ready")
	}
	file, err := s.exporter.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrGone, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(claims.Path),
		Format:    job.Params.Format,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// RecoverInterrupted fails jobs left queued or processing by a previous
// process. Their snapshots lived in memory and cannot be replayed.
func (s *ExportJobService) RecoverInterrupted(ctx context.Context) {
	n, err := s.repo.FailInterrupted(ctx, interruptedJobMessage, time.Now().UTC())
	if err != nil {
		s.logger.Warn("failed to recover interrupted export jobs", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("interrupted export jobs marked failed", zap.Int64("count", n))
	}
}

// HandleExhausted marks a job failed once the queue gives up on it.
func (s *ExportJobService) HandleExhausted(job jobs.Job, cause error) {
	ctx := context.Background()
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		s.logger.Warn("exhausted export job not found", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	if record.Status == models.ExportStatusFailed {
		return
	}
	msg := "export failed"
	if cause != nil {
		msg = cause.Error()
	}
	s.markFailed(ctx, record, msg)
}

// RunCleanup purges expired exports every CleanupInterval until ctx is cancelled.
func (s *ExportJobService) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.CleanupExpired(ctx)
		}
	}
}

// CleanupExpired removes files of jobs finished more than ResultTTL ago,
// then sweeps stray files from storage.
func (s *ExportJobService) CleanupExpired(ctx context.Context) {
	const batch = 100
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	seen := make(map[string]struct{})
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, batch)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			return
		}
		fresh := 0
		for _, job := range expired {
			if _, ok := seen[job.ID]; ok {
				continue
			}
			seen[job.ID] = struct{}{}
			fresh++
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			claims, err := s.exporter.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exporter.Delete(claims.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
		if len(expired) < batch || fresh == 0 {
			break
		}
	}
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired export files removed", zap.Int("count", len(removed)))
	}
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func (s *ExportJobService) markFailed(ctx context.Context, job *models.ExportJob, msg string) {
	markJobFailed(ctx, s.repo, job.ID, msg, s.logger)
	s.metrics.RecordExportJob(job.Params.Format, models.ExportStatusFailed)
}

func markJobFailed(ctx context.Context, repo exportJobStore, id, msg string, logger *zap.Logger) {
	failed := models.ExportStatusFailed
	progress := 100
	now := time.Now().UTC()
	if err := repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		logger.Warn("failed to mark export job failed", zap.String("job_id", id), zap.Error(err))
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ExportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	snapshot, ok := job.Payload.(*SessionSnapshot)
	if !ok || snapshot == nil {
		markJobFailed(ctx, w.repo, job.ID, "export snapshot missing", w.logger)
		w.metrics.RecordExportJob(record.Params.Format, models.ExportStatusFailed)
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record, snapshot)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			markJobFailed(ctx, w.repo, job.ID, msg, w.logger)
			w.metrics.RecordExportJob(record.Params.Format, models.ExportStatusFailed)
		} else {
			queued := models.ExportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark export job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	cleared := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &cleared,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark export job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExportJob(record.Params.Format, models.ExportStatusFinished)
	w.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("path", result.RelativePath))
	return nil
}

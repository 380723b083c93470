package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/timegrid-api/internal/dto"
	"github.com/noah-isme/timegrid-api/internal/generator"
	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/timetable"
	appErrors "github.com/noah-isme/timegrid-api/pkg/errors"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

type timetableRepository interface {
	Create(ctx context.Context, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error)
	Delete(ctx context.Context, id string) error
}

// TimetableServiceConfig governs the grid shape and session lifetime.
type TimetableServiceConfig struct {
	Days          []string
	SlotMinutes   int
	FrameSlots    []string // working-day frame for reopened timetables
	SessionTTL    time.Duration
	SweepInterval time.Duration
	CacheTTL      time.Duration
}

// TimetableService owns editing sessions and saved timetables.
type TimetableService struct {
	generator scheduleGenerator
	repo      timetableRepository
	cache     *CacheService
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
	sessions  *sessionStore
}

// SessionSnapshot is a consistent copy of a session's effective schedule.
type SessionSnapshot struct {
	ID        string
	Faculty   string
	Semester  string
	Session   string
	Score     float64
	Axis      *timetable.TimeAxis
	Schedule  timetable.Schedule
	Conflicts []timetable.Conflict
}

// timetableListPage is the cached form of one listing page.
type timetableListPage struct {
	Items []models.TimetableSummary `json:"items"`
	Total int                       `json:"total"`
}

// NewTimetableService wires the timetable service.
func NewTimetableService(
	gen scheduleGenerator,
	repo timetableRepository,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Days) == 0 {
		cfg.Days = timetable.DefaultDays
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = timetable.DefaultSlotMinutes
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	return &TimetableService{
		generator: gen,
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		cfg:       cfg,
		sessions:  newSessionStore(cfg.SessionTTL),
	}
}

// Generate asks the generator for a schedule and installs it as the baseline
// of a new session, or of the session named in the request.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.SessionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	breakAt := ""
	if req.Break != nil {
		breakAt = *req.Break
	}
	frame, err := timetable.FrameSlots(req.TimeFrame.Start, req.TimeFrame.End, breakAt, s.cfg.SlotMinutes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	var existing *editSession
	if req.SessionID != "" {
		sess, err := s.session(req.SessionID)
		if err != nil {
			return nil, err
		}
		existing = sess
	}

	start := time.Now()
	result, err := s.generator.Generate(ctx, req.GeneratorRequest().WithDefaultDays(s.cfg.Days))
	s.metrics.ObserveGenerator(err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("schedule generation failed", zap.String("faculty", req.Faculty), zap.Error(err))
		return nil, generatorError(err)
	}

	baseline, err := result.ToSchedule()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "generator returned an invalid schedule")
	}
	store, err := timetable.NewStore(baseline, timetable.StoreOptions{
		Days:        s.cfg.Days,
		SlotMinutes: s.cfg.SlotMinutes,
		FrameSlots:  frame,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "generator returned an invalid schedule: "+err.Error())
	}

	sess := s.install(existing, sessionMeta{
		faculty:           req.Faculty,
		semester:          req.Semester,
		term:              req.Session,
		score:             result.Score,
		upstreamConflicts: result.Conflicts,
	}, store)
	s.logger.Info("timetable generated",
		zap.String("session_id", sess.id),
		zap.String("faculty", req.Faculty),
		zap.Int("levels", len(baseline)),
		zap.Float64("score", result.Score),
	)
	return s.sessionResponse(sess)
}

// Session returns the current state of an editing session.
func (s *TimetableService) Session(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionResponse(sess)
}

// Blocks consolidates one level, or the faculty-wide union when view is "faculty".
func (s *TimetableService) Blocks(ctx context.Context, sessionID string, view models.ExportView, level string) (*dto.BlocksResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	_, store := sess.snapshot()
	conflicts, err := store.Conflicts()
	if err != nil {
		return nil, engineError(err)
	}

	resp := &dto.BlocksResponse{View: view}
	var blocks []timetable.Block
	switch view {
	case "", models.ExportViewLevel:
		resp.View = models.ExportViewLevel
		if level == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "level is required for the level view")
		}
		lvl, err := timetable.ParseLevel(level)
		if err != nil {
			return nil, engineError(err)
		}
		resp.Level = lvl
		blocks, err = store.Blocks(lvl)
		if err != nil {
			return nil, engineError(err)
		}
	case models.ExportViewFaculty:
		blocks, err = store.FacultyBlocks()
		if err != nil {
			return nil, engineError(err)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view %q", view))
	}
	resp.Blocks = blockViews(blocks, timetable.NewConflictSet(conflicts))
	return resp, nil
}

// Conflicts lists every double booking of the session's effective schedule.
func (s *TimetableService) Conflicts(ctx context.Context, sessionID string) (*dto.ConflictsResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	_, store := sess.snapshot()
	conflicts, err := store.Conflicts()
	if err != nil {
		return nil, engineError(err)
	}
	s.metrics.ObserveConflicts(len(conflicts))
	return &dto.ConflictsResponse{
		Total:     len(conflicts),
		Conflicts: conflictViews(conflicts),
		Keys:      timetable.NewConflictSet(conflicts).Keys(),
	}, nil
}

// Move relocates a block in one step.
func (s *TimetableService) Move(ctx context.Context, sessionID string, req dto.MoveBlockRequest) (*dto.MoveResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	source, err := timetable.ParseLevel(req.SourceLevel)
	if err != nil {
		return nil, engineError(err)
	}
	target, err := timetable.ParseLevel(req.TargetLevel)
	if err != nil {
		return nil, engineError(err)
	}

	_, store := sess.snapshot()
	result, err := store.ApplyMove(timetable.MoveRequest{
		SourceLevel: source,
		SourceDay:   req.SourceDay,
		SourceTime:  req.SourceTime,
		TargetLevel: target,
		TargetDay:   req.TargetDay,
		TargetTime:  req.TargetTime,
	})
	s.recordMove(sessionID, err)
	if err != nil {
		return nil, engineError(err)
	}
	return s.moveResponse(store, result)
}

// Select marks the block at the given slot as the pending move source.
func (s *TimetableService) Select(ctx context.Context, sessionID string, req dto.SlotRequest) (*timetable.Selection, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	level, err := timetable.ParseLevel(req.Level)
	if err != nil {
		return nil, engineError(err)
	}
	_, store := sess.snapshot()
	sel, err := store.Select(level, req.Day, req.Time)
	if err != nil {
		return nil, engineError(err)
	}
	return &sel, nil
}

// CancelSelection clears the pending move source.
func (s *TimetableService) CancelSelection(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	_, store := sess.snapshot()
	store.CancelSelection()
	return nil
}

// Drop moves the selected block onto the target slot.
func (s *TimetableService) Drop(ctx context.Context, sessionID string, req dto.SlotRequest) (*dto.MoveResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	level, err := timetable.ParseLevel(req.Level)
	if err != nil {
		return nil, engineError(err)
	}
	_, store := sess.snapshot()
	result, err := store.Drop(level, req.Day, req.Time)
	s.recordMove(sessionID, err)
	if err != nil {
		return nil, engineError(err)
	}
	return s.moveResponse(store, result)
}

// Reset discards every manual edit of the session.
func (s *TimetableService) Reset(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	_, store := sess.snapshot()
	store.Reset()
	return s.sessionResponse(sess)
}

// Close ends an editing session.
func (s *TimetableService) Close(ctx context.Context, sessionID string) error {
	if !s.sessions.Delete(sessionID) {
		return errSessionNotFound
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
	return nil
}

// Snapshot returns the session's effective schedule together with its axis and conflicts.
func (s *TimetableService) Snapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(sess)
}

// Save persists the session's effective schedule. Schedules with conflicts are
// refused unless the caller accepts them explicitly.
func (s *TimetableService) Save(ctx context.Context, sessionID string, req dto.SaveTimetableRequest) (*models.Timetable, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	snapshot, err := snapshotOf(sess)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Conflicts) > 0 && !req.AllowConflicts {
		return nil, appErrors.WithDetails(
			appErrors.Clone(errHasConflicts, fmt.Sprintf("schedule has %d unresolved conflicts", len(snapshot.Conflicts))),
			conflictViews(snapshot.Conflicts),
		)
	}

	faculty, _ := lo.Coalesce(req.Faculty, snapshot.Faculty)
	semester, _ := lo.Coalesce(req.Semester, snapshot.Semester)
	term, _ := lo.Coalesce(req.Session, snapshot.Session)
	if faculty == "" || semester == "" || term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty, semester and session are required")
	}

	body, err := json.Marshal(snapshot.Schedule)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}

	record := &models.Timetable{
		Faculty:       faculty,
		Semester:      semester,
		Session:       term,
		Schedule:      body,
		Score:         snapshot.Score,
		ConflictCount: len(snapshot.Conflicts),
	}
	start := time.Now()
	err = s.repo.Create(ctx, record)
	s.metrics.ObserveDBQuery("timetables.create", time.Since(start))
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.timetableID = record.ID
	sess.mu.Unlock()

	_ = s.cache.Set(ctx, timetableCacheKey(record.ID), record, s.cfg.CacheTTL)
	_ = s.cache.Invalidate(ctx, cacheKeyTimetableList+"*")
	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("session_id", sessionID),
		zap.Int("conflicts", record.ConflictCount),
	)
	return record, nil
}

// List returns saved timetables matching the query.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableListQuery) ([]models.TimetableSummary, *models.Pagination, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	filter := models.TimetableFilter{
		Faculty:  query.Faculty,
		Semester: query.Semester,
		Session:  query.Session,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	key := timetableListCacheKey(filter)
	var cached timetableListPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, nil
	}

	start := time.Now()
	items, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("timetables.list", time.Since(start))
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []models.TimetableSummary{}
	}
	_ = s.cache.Set(ctx, key, timetableListPage{Items: items, Total: total}, s.cfg.CacheTTL)
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get loads a saved timetable, preferring the cache.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	var cached models.Timetable
	if hit, _ := s.cache.Get(ctx, timetableCacheKey(id), &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	record, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("timetables.find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, err
	}
	_ = s.cache.Set(ctx, timetableCacheKey(id), record, s.cfg.CacheTTL)
	return record, nil
}

// Delete removes a saved timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveDBQuery("timetables.delete", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return err
	}
	_ = s.cache.Delete(ctx, timetableCacheKey(id))
	_ = s.cache.Invalidate(ctx, cacheKeyTimetableList+"*")
	return nil
}

// Open starts an editing session from a saved timetable.
func (s *TimetableService) Open(ctx context.Context, id string) (*dto.SessionResponse, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var baseline timetable.Schedule
	if err := json.Unmarshal(record.Schedule, &baseline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule is unreadable")
	}
	store, err := timetable.NewStore(baseline, timetable.StoreOptions{
		Days:        s.cfg.Days,
		SlotMinutes: s.cfg.SlotMinutes,
		FrameSlots:  s.cfg.FrameSlots,
	})
	if err != nil {
		return nil, engineError(err)
	}
	sess := s.install(nil, sessionMeta{
		timetableID: record.ID,
		faculty:     record.Faculty,
		semester:    record.Semester,
		term:        record.Session,
		score:       record.Score,
	}, store)
	return s.sessionResponse(sess)
}

// RunSweeper evicts expired sessions until ctx is cancelled.
func (s *TimetableService) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepSessions()
		}
	}
}

// SweepSessions evicts expired sessions once and returns how many were dropped.
func (s *TimetableService) SweepSessions() int {
	removed, remaining := s.sessions.Sweep()
	s.metrics.SetActiveSessions(remaining)
	if removed > 0 {
		s.logger.Info("expired editing sessions removed", zap.Int("removed", removed), zap.Int("remaining", remaining))
	}
	return removed
}

func (s *TimetableService) session(id string) (*editSession, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, errSessionNotFound
	}
	return sess, nil
}

func (s *TimetableService) install(existing *editSession, meta sessionMeta, store *timetable.Store) *editSession {
	if existing != nil {
		existing.mu.Lock()
		existing.faculty = meta.faculty
		existing.semester = meta.semester
		existing.term = meta.term
		existing.score = meta.score
		existing.upstreamConflicts = meta.upstreamConflicts
		existing.timetableID = meta.timetableID
		existing.store = store
		existing.mu.Unlock()
		return existing
	}
	sess := &editSession{
		id:                uuid.NewString(),
		timetableID:       meta.timetableID,
		faculty:           meta.faculty,
		semester:          meta.semester,
		term:              meta.term,
		score:             meta.score,
		upstreamConflicts: meta.upstreamConflicts,
		store:             store,
		createdAt:         time.Now().UTC(),
	}
	s.sessions.Save(sess)
	s.metrics.SetActiveSessions(s.sessions.Len())
	return sess
}

func (s *TimetableService) sessionResponse(sess *editSession) (*dto.SessionResponse, error) {
	meta, store := sess.snapshot()
	conflicts, err := store.Conflicts()
	if err != nil {
		return nil, engineError(err)
	}
	axis := store.Axis()
	resp := &dto.SessionResponse{
		SessionID:         meta.id,
		TimetableID:       meta.timetableID,
		Faculty:           meta.faculty,
		Semester:          meta.semester,
		Session:           meta.term,
		Score:             meta.score,
		Levels:            store.Levels(),
		Days:              axis.Days(),
		Slots:             axis.Slots(),
		SlotMinutes:       axis.SlotMinutes(),
		Schedule:          store.Effective(),
		Conflicts:         conflictViews(conflicts),
		UpstreamConflicts: meta.upstreamConflicts,
		Dirty:             store.Dirty(),
		EditedLevels:      store.EditedLevels(),
		Version:           store.Version(),
		ExpiresAt:         s.sessions.ExpiresAt(meta.id),
	}
	if resp.EditedLevels == nil {
		resp.EditedLevels = []timetable.Level{}
	}
	if sel, ok := store.Selection(); ok {
		resp.Selection = &sel
	}
	return resp, nil
}

func (s *TimetableService) moveResponse(store *timetable.Store, result timetable.MoveResult) (*dto.MoveResponse, error) {
	conflicts, err := store.Conflicts()
	if err != nil {
		return nil, engineError(err)
	}
	return &dto.MoveResponse{
		Moved:     result.Moved,
		From:      result.From,
		Changed:   result.Changed,
		Conflicts: conflictViews(conflicts),
		Version:   store.Version(),
	}, nil
}

func (s *TimetableService) recordMove(sessionID string, err error) {
	outcome := "applied"
	if err != nil {
		outcome = string(timetable.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.RecordMove(outcome)
	s.logger.Debug("block move", zap.String("session_id", sessionID), zap.String("outcome", outcome))
}

func snapshotOf(sess *editSession) (*SessionSnapshot, error) {
	meta, store := sess.snapshot()
	effective := store.Effective()
	conflicts, err := timetable.DetectConflicts(effective.All())
	if err != nil {
		return nil, engineError(err)
	}
	return &SessionSnapshot{
		ID:        meta.id,
		Faculty:   meta.faculty,
		Semester:  meta.semester,
		Session:   meta.term,
		Score:     meta.score,
		Axis:      store.Axis(),
		Schedule:  effective,
		Conflicts: conflicts,
	}, nil
}

func generatorError(err error) error {
	var upstream *generator.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return appErrors.WithDetails(
			appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, upstream.Message),
			upstream.Details,
		)
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, http.StatusGatewayTimeout, "generator timed out")
	default:
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "generator unavailable")
	}
}

func conflictViews(conflicts []timetable.Conflict) []dto.ConflictView {
	views := make([]dto.ConflictView, 0, len(conflicts))
	for _, c := range conflicts {
		views = append(views, dto.ConflictView{Conflict: c, Key: c.Key(), Message: c.Message()})
	}
	return views
}

func blockViews(blocks []timetable.Block, set timetable.ConflictSet) []dto.BlockView {
	return lo.Map(blocks, func(b timetable.Block, _ int) dto.BlockView {
		conflicted := lo.SomeBy(b.Times, func(t string) bool {
			return set.Involves(timetable.Booking{Day: b.Day, Time: t, Room: b.Room, Instructor: b.Instructor})
		})
		return dto.BlockView{Block: b, Conflicted: conflicted}
	})
}

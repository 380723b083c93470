package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timegrid-api/internal/models"
)

// TimetableRepository persists saved faculty timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a timetable row, filling identifiers and timestamps.
func (r *TimetableRepository) Create(ctx context.Context, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now
	const query = `INSERT INTO timetables (id, faculty, semester, session, schedule, score, conflict_count, created_at, updated_at)
VALUES (:id, :faculty, :semester, :session, :schedule, :score, :conflict_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// FindByID returns a saved timetable including its schedule body.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, faculty, semester, session, schedule, score, conflict_count, created_at, updated_at
FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// List returns timetable summaries matching the filter, newest first.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error) {
	args := make([]interface{}, 0, 3)
	conditions := []string{"1=1"}
	if filter.Faculty != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(faculty) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Faculty))
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Session != "" {
		conditions = append(conditions, fmt.Sprintf("session = $%d", len(args)+1))
		args = append(args, filter.Session)
	}
	base := fmt.Sprintf("FROM timetables WHERE %s", strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, faculty, semester, session, score, conflict_count, created_at, updated_at
%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var items []models.TimetableSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}
	return items, total, nil
}

// Delete removes a saved timetable. sql.ErrNoRows signals an unknown id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

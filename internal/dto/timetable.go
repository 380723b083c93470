package dto

import (
	"time"

	"github.com/noah-isme/timegrid-api/internal/generator"
	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/timetable"
)

// GenerateTimetableRequest is the payload the editor posts to build a schedule.
// Field names follow the generator's own contract.
type GenerateTimetableRequest struct {
	SessionID   string                 `json:"sessionId,omitempty" validate:"omitempty,uuid"`
	Faculty     string                 `json:"faculty" validate:"required"`
	Semester    string                 `json:"semester" validate:"required"`
	Session     string                 `json:"session" validate:"required"`
	Courses     []generator.Course     `json:"courses" validate:"required,min=1,dive"`
	Rooms       []generator.Room       `json:"rooms" validate:"required,min=1,dive"`
	Instructors []generator.Instructor `json:"instructors" validate:"required,min=1,dive"`
	TimeFrame   generator.TimeFrame    `json:"time_frame" validate:"required"`
	Break       *string                `json:"break,omitempty"`
}

// GeneratorRequest converts the payload into the upstream request.
func (r GenerateTimetableRequest) GeneratorRequest() generator.Request {
	return generator.Request{
		Faculty:     r.Faculty,
		Semester:    r.Semester,
		Session:     r.Session,
		Courses:     r.Courses,
		Rooms:       r.Rooms,
		Instructors: r.Instructors,
		TimeFrame:   r.TimeFrame,
		Break:       r.Break,
	}
}

// SessionResponse describes an editing session and its current schedule.
type SessionResponse struct {
	SessionID         string               `json:"sessionId"`
	TimetableID       string               `json:"timetableId,omitempty"`
	Faculty           string               `json:"faculty"`
	Semester          string               `json:"semester"`
	Session           string               `json:"session"`
	Score             float64              `json:"score"`
	Levels            []timetable.Level    `json:"levels"`
	Days              []string             `json:"days"`
	Slots             []string             `json:"slots"`
	SlotMinutes       int                  `json:"slotMinutes"`
	Schedule          timetable.Schedule   `json:"schedule"`
	Conflicts         []ConflictView       `json:"conflicts"`
	UpstreamConflicts []string             `json:"upstreamConflicts,omitempty"`
	Selection         *timetable.Selection `json:"selection,omitempty"`
	Dirty             bool                 `json:"dirty"`
	EditedLevels      []timetable.Level    `json:"editedLevels"`
	Version           int64                `json:"version"`
	ExpiresAt         time.Time            `json:"expiresAt"`
}

// BlockView is a consolidated block with its conflict highlight.
type BlockView struct {
	timetable.Block
	Conflicted bool `json:"conflicted"`
}

// BlocksResponse lists blocks for one level or the whole faculty.
type BlocksResponse struct {
	View   models.ExportView `json:"view"`
	Level  timetable.Level   `json:"level,omitempty"`
	Blocks []BlockView       `json:"blocks"`
}

// ConflictView is a conflict with its flattened key and display message.
type ConflictView struct {
	timetable.Conflict
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ConflictsResponse lists every conflict of the effective schedule.
type ConflictsResponse struct {
	Total     int            `json:"total"`
	Conflicts []ConflictView `json:"conflicts"`
	Keys      []string       `json:"keys"`
}

// MoveBlockRequest relocates the block containing the source slot so that it
// starts at the target slot.
type MoveBlockRequest struct {
	SourceLevel string `json:"sourceLevel" validate:"required"`
	SourceDay   string `json:"sourceDay" validate:"required"`
	SourceTime  string `json:"sourceTime" validate:"required"`
	TargetLevel string `json:"targetLevel" validate:"required"`
	TargetDay   string `json:"targetDay" validate:"required"`
	TargetTime  string `json:"targetTime" validate:"required"`
}

// SlotRequest addresses one grid cell.
type SlotRequest struct {
	Level string `json:"level" validate:"required"`
	Day   string `json:"day" validate:"required"`
	Time  string `json:"time" validate:"required"`
}

// MoveResponse reports an applied move.
type MoveResponse struct {
	Moved     timetable.Block   `json:"moved"`
	From      timetable.Block   `json:"from"`
	Changed   []timetable.Level `json:"changed"`
	Conflicts []ConflictView    `json:"conflicts"`
	Version   int64             `json:"version"`
}

// SaveTimetableRequest persists the session's effective schedule. Empty
// metadata falls back to the session's own.
type SaveTimetableRequest struct {
	Faculty        string `json:"faculty"`
	Semester       string `json:"semester"`
	Session        string `json:"session"`
	AllowConflicts bool   `json:"allowConflicts"`
}

// TimetableListQuery captures GET /timetables filters.
type TimetableListQuery struct {
	Faculty  string `form:"faculty"`
	Semester string `form:"semester"`
	Session  string `form:"session"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ExportRequest captures POST /timetables/sessions/:sessionId/exports.
type ExportRequest struct {
	Format         models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	View           models.ExportView   `json:"view" validate:"required,oneof=level faculty"`
	Levels         []string            `json:"levels,omitempty"`
	AllowConflicts bool                `json:"allowConflicts"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/timetable"
	"github.com/noah-isme/timegrid-api/pkg/export"
	"github.com/noah-isme/timegrid-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// Export column headers.
const (
	columnLevel      = "Level"
	columnDay        = "Day"
	columnTime       = "Time"
	columnCourse     = "Course"
	columnInstructor = "Instructor"
	columnRoom       = "Room"
	columnDepartment = "Department"
	columnDuration   = "Duration"
)

var levelColumns = []string{columnDay, columnTime, columnCourse, columnInstructor, columnRoom, columnDepartment, columnDuration}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders session snapshots and persists the files.
type ExportService struct {
	storage fileStorage
	csv     documentRenderer
	pdf     documentRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// BuildDocument lays out the snapshot's consolidated blocks. The level view
// yields one section per level, the faculty view a single merged section.
func (s *ExportService) BuildDocument(snapshot *SessionSnapshot, params models.ExportJobParams) (export.Document, error) {
	if snapshot == nil {
		return export.Document{}, fmt.Errorf("snapshot nil")
	}
	doc := export.Document{Title: documentTitle(snapshot, params.View)}

	switch params.View {
	case models.ExportViewFaculty:
		blocks, err := timetable.Consolidate(snapshot.Axis, snapshot.Schedule.All())
		if err != nil {
			return export.Document{}, err
		}
		headers := append([]string{columnLevel}, levelColumns...)
		rows := make([]map[string]string, 0, len(blocks))
		for _, b := range blocks {
			row := blockRow(b, snapshot.Axis.SlotMinutes())
			row[columnLevel] = string(b.Level)
			rows = append(rows, row)
		}
		doc.Sections = []export.Section{{Title: "Faculty Timetable", Data: export.Dataset{Headers: headers, Rows: rows}}}
	case models.ExportViewLevel, "":
		levels, err := exportLevels(snapshot.Schedule, params.Levels)
		if err != nil {
			return export.Document{}, err
		}
		for _, level := range levels {
			blocks, err := timetable.Consolidate(snapshot.Axis, snapshot.Schedule[level])
			if err != nil {
				return export.Document{}, err
			}
			rows := make([]map[string]string, 0, len(blocks))
			for _, b := range blocks {
				rows = append(rows, blockRow(b, snapshot.Axis.SlotMinutes()))
			}
			doc.Sections = append(doc.Sections, export.Section{
				Title: fmt.Sprintf("Level %s Timetable", level),
				Data:  export.Dataset{Headers: levelColumns, Rows: rows},
			})
		}
	default:
		return export.Document{}, fmt.Errorf("unsupported view %s", params.View)
	}
	return doc, nil
}

// Generate renders the snapshot, stores the file and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob, snapshot *SessionSnapshot) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	doc, err := s.BuildDocument(snapshot, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(doc)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(doc)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(exportFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("export rendered",
		zap.String("job_id", job.ID),
		zap.String("path", relPath),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Claims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func exportLevels(schedule timetable.Schedule, requested []string) ([]timetable.Level, error) {
	if len(requested) == 0 {
		return schedule.Levels(), nil
	}
	levels := make([]timetable.Level, 0, len(requested))
	for _, raw := range requested {
		level, err := timetable.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		if !schedule.Has(level) {
			return nil, &timetable.Error{Kind: timetable.KindNotFound, Message: fmt.Sprintf("level %s not in schedule", level)}
		}
		levels = append(levels, level)
	}
	timetable.SortLevels(levels)
	return levels, nil
}

func blockRow(b timetable.Block, slotMinutes int) map[string]string {
	return map[string]string{
		columnDay:        b.Day,
		columnTime:       fmt.Sprintf("%s - %s", b.Start, b.End),
		columnCourse:     fmt.Sprintf("%s - %s", b.CourseCode, b.CourseName),
		columnInstructor: b.Instructor,
		columnRoom:       b.Room,
		columnDepartment: b.Department,
		columnDuration:   formatHours(b.Duration, slotMinutes),
	}
}

func formatHours(slots, slotMinutes int) string {
	if slotMinutes <= 0 {
		slotMinutes = timetable.DefaultSlotMinutes
	}
	hours := float64(slots*slotMinutes) / 60
	return strconv.FormatFloat(hours, 'f', -1, 64) + " hr(s)"
}

func documentTitle(snapshot *SessionSnapshot, view models.ExportView) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{snapshot.Faculty, snapshot.Semester, snapshot.Session} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	title := "Timetable"
	if view == models.ExportViewFaculty {
		title = "Faculty Timetable"
	}
	if len(parts) == 0 {
		return title
	}
	return fmt.Sprintf("%s - %s", title, strings.Join(parts, " "))
}

func exportFilename(job *models.ExportJob) string {
	ext := "csv"
	if job.Params.Format == models.ExportFormatPDF {
		ext = "pdf"
	}
	view := job.Params.View
	if view == "" {
		view = models.ExportViewLevel
	}
	return fmt.Sprintf("timetable_%s_%s_%d.%s", view, job.ID, time.Now().Unix(), ext)
}

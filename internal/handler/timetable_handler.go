package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timegrid-api/internal/dto"
	"github.com/noah-isme/timegrid-api/internal/models"
	"github.com/noah-isme/timegrid-api/internal/timetable"
	appErrors "github.com/noah-isme/timegrid-api/pkg/errors"
	"github.com/noah-isme/timegrid-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.SessionResponse, error)
	Session(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Blocks(ctx context.Context, sessionID string, view models.ExportView, level string) (*dto.BlocksResponse, error)
	Conflicts(ctx context.Context, sessionID string) (*dto.ConflictsResponse, error)
	Move(ctx context.Context, sessionID string, req dto.MoveBlockRequest) (*dto.MoveResponse, error)
	Select(ctx context.Context, sessionID string, req dto.SlotRequest) (*timetable.Selection, error)
	CancelSelection(ctx context.Context, sessionID string) error
	Drop(ctx context.Context, sessionID string, req dto.SlotRequest) (*dto.MoveResponse, error)
	Reset(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Close(ctx context.Context, sessionID string) error
	Save(ctx context.Context, sessionID string, req dto.SaveTimetableRequest) (*models.Timetable, error)
	List(ctx context.Context, query dto.TimetableListQuery) ([]models.TimetableSummary, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (*dto.SessionResponse, error)
}

type exportJobCreator interface {
	CreateJob(ctx context.Context, sessionID string, req dto.ExportRequest) (*dto.ExportJobResponse, error)
}

// TimetableHandler exposes schedule editing and saved timetable endpoints.
type TimetableHandler struct {
	service timetableService
	exports exportJobCreator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService, exports exportJobCreator) *TimetableHandler {
	return &TimetableHandler{service: svc, exports: exports}
}

// Generate godoc
// @Summary Generate a schedule and open an editing session
// @Description Passing sessionId regenerates the baseline of an existing session and discards its edits.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generator payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Session godoc
// @Summary Get editing session snapshot
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/sessions/{sessionId} [get]
func (h *TimetableHandler) Session(c *gin.Context) {
	result, err := h.service.Session(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CloseSession godoc
// @Summary Close an editing session
// @Tags Sessions
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /timetables/sessions/{sessionId} [delete]
func (h *TimetableHandler) CloseSession(c *gin.Context) {
	if err := h.service.Close(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Blocks godoc
// @Summary List consolidated blocks
// @Description view=level (default) needs a level; view=faculty merges every level.
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param view query string false "level or faculty"
// @Param level query string false "Level"
// @Success 200 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/blocks [get]
func (h *TimetableHandler) Blocks(c *gin.Context) {
	view := models.ExportView(c.DefaultQuery("view", string(models.ExportViewLevel)))
	if view != models.ExportViewLevel && view != models.ExportViewFaculty {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "view must be level or faculty"))
		return
	}
	level := c.Query("level")
	if view == models.ExportViewLevel && level == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "level is required"))
		return
	}
	result, err := h.service.Blocks(c.Request.Context(), c.Param("sessionId"), view, level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary List conflicts of the effective schedule
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	result, err := h.service.Conflicts(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Move godoc
// @Summary Move a block
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.MoveBlockRequest true "Source and target slots"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/moves [post]
func (h *TimetableHandler) Move(c *gin.Context) {
	var req dto.MoveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	result, err := h.service.Move(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Select godoc
// @Summary Pick up the block at a slot
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.SlotRequest true "Source slot"
// @Success 200 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/selection [post]
func (h *TimetableHandler) Select(c *gin.Context) {
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	result, err := h.service.Select(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CancelSelection godoc
// @Summary Drop the current selection without moving
// @Tags Sessions
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /timetables/sessions/{sessionId}/selection [delete]
func (h *TimetableHandler) CancelSelection(c *gin.Context) {
	if err := h.service.CancelSelection(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Drop godoc
// @Summary Move the selected block onto a slot
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.SlotRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/selection/drop [post]
func (h *TimetableHandler) Drop(c *gin.Context) {
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid drop payload"))
		return
	}
	result, err := h.service.Drop(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reset godoc
// @Summary Discard every edit of the session
// @Tags Sessions
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/reset [post]
func (h *TimetableHandler) Reset(c *gin.Context) {
	result, err := h.service.Reset(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist the session's effective schedule
// @Tags Timetables
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.SaveTimetableRequest false "Metadata overrides"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
			return
		}
	}
	result, err := h.service.Save(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Export godoc
// @Summary Queue a CSV or PDF export of the session
// @Tags Exports
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.ExportRequest true "Export options"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/sessions/{sessionId}/exports [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.exports.CreateJob(c.Request.Context(), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// List godoc
// @Summary List saved timetables
// @Tags Timetables
// @Produce json
// @Param faculty query string false "Faculty"
// @Param semester query string false "Semester"
// @Param session query string false "Academic session"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a saved timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Open godoc
// @Summary Open a saved timetable for editing
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/sessions [post]
func (h *TimetableHandler) Open(c *gin.Context) {
	result, err := h.service.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

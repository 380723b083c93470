package service

import (
	"errors"
	"net/http"

	"github.com/noah-isme/timegrid-api/internal/timetable"
	appErrors "github.com/noah-isme/timegrid-api/pkg/errors"
)

var (
	errSessionNotFound = appErrors.New("SESSION_NOT_FOUND", http.StatusNotFound, "editing session not found or expired")
	errHasConflicts    = appErrors.New("SCHEDULE_HAS_CONFLICTS", http.StatusConflict, "schedule has unresolved conflicts")
)

// engineError maps grid engine failures onto API errors. Foreign errors pass
// through untouched.
func engineError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	switch timetable.KindOf(err) {
	case timetable.KindNotFound:
		return appErrors.Wrap(err, string(timetable.KindNotFound), http.StatusNotFound, message)
	case timetable.KindOutOfRange:
		return appErrors.Wrap(err, string(timetable.KindOutOfRange), http.StatusUnprocessableEntity, message)
	case timetable.KindNoOp:
		return appErrors.Wrap(err, string(timetable.KindNoOp), http.StatusConflict, message)
	case timetable.KindInvalidInput:
		return appErrors.Wrap(err, string(timetable.KindInvalidInput), http.StatusBadRequest, message)
	case timetable.KindMoveConflict:
		var engineErr *timetable.Error
		wrapped := appErrors.Wrap(err, string(timetable.KindMoveConflict), http.StatusConflict, message)
		if errors.As(err, &engineErr) {
			wrapped.Details = engineErr.Collisions
		}
		return wrapped
	default:
		return err
	}
}

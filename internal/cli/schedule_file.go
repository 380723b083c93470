package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

// scheduleFile mirrors the JSON body of a saved timetable. Only Schedule is
// required; the remaining fields are carried through untouched.
type scheduleFile struct {
	ID       string             `json:"id,omitempty"`
	Faculty  string             `json:"faculty,omitempty"`
	Semester string             `json:"semester,omitempty"`
	Session  string             `json:"session,omitempty"`
	Schedule timetable.Schedule `json:"schedule"`
}

func readScheduleFile(path string) (*scheduleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}
	var file scheduleFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decoding schedule file %s: %w", path, err)
	}
	if len(file.Schedule) == 0 {
		return nil, fmt.Errorf("schedule file %s has no levels", path)
	}
	return &file, nil
}

func writeScheduleFile(path string, file *scheduleFile) error {
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing schedule file: %w", err)
	}
	return nil
}

func (a *App) openStore(path string) (*scheduleFile, *timetable.Store, error) {
	file, err := readScheduleFile(path)
	if err != nil {
		return nil, nil, err
	}
	opts, err := a.storeOptions()
	if err != nil {
		return nil, nil, err
	}
	store, err := timetable.NewStore(file.Schedule, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("loading schedule: %w", err)
	}
	return file, store, nil
}

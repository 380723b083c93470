package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

const conflictedSchedule = `{
  "id": "tt-1",
  "faculty": "Science",
  "semester": "First",
  "session": "2025/2026",
  "schedule": {
    "100": [
      {"day": "Monday", "time": "09:00", "course_code": "CS101", "course_name": "Intro to Computing", "instructor": "Dr. Ada", "room": "R1", "department": "CS"},
      {"day": "Monday", "time": "10:00", "course_code": "CS101", "course_name": "Intro to Computing", "instructor": "Dr. Ada", "room": "R1", "department": "CS"}
    ],
    "200": [
      {"day": "Monday", "time": "09:00", "course_code": "CS201", "course_name": "Data Structures", "instructor": "Dr. Bo", "room": "R1", "department": "CS"}
    ]
  }
}`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	app := NewApp(&out)
	app.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

func TestBlocksCommandListsLevels(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	out, err := runApp(t, "blocks", path)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Level 100 ===")
	assert.Contains(t, out, "=== Level 200 ===")
	assert.Contains(t, out, "09:00 - 11:00")
	assert.Contains(t, out, "2 slot(s)")
	assert.Contains(t, out, "  !")
}

func TestBlocksCommandSingleLevelAndFaculty(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	out, err := runApp(t, "blocks", path, "--level", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "CS201")
	assert.NotContains(t, out, "CS101")

	out, err = runApp(t, "blocks", path, "--faculty")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Faculty ===")
	assert.Contains(t, out, "CS101")
	assert.Contains(t, out, "CS201")

	_, err = runApp(t, "blocks", path, "--level", "300")
	require.Error(t, err)
	assert.True(t, errors.Is(err, timetable.ErrInvalidInput))
}

func TestConflictsCommand(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	out, err := runApp(t, "conflicts", path)
	require.NoError(t, err)
	assert.Contains(t, out, "=== 1 conflict(s) ===")
	assert.Contains(t, out, "Room R1 double-booked at Monday 09:00")
	assert.Contains(t, out, "levels 100, 200")

	_, err = runApp(t, "conflicts", path, "--strict")
	assert.ErrorIs(t, err, errConflictsFound)
}

func TestMoveCommandWritesEditedSchedule(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)
	dest := filepath.Join(t.TempDir(), "moved.json")

	out, err := runApp(t, "move", path, "--from", "200,Monday,09:00", "--to", "200,Tuesday,09:00", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Moved CS201 from 200 Monday 09:00-10:00 to 200 Tuesday 09:00-10:00")
	assert.NotContains(t, out, "still has")

	file, err := readScheduleFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "tt-1", file.ID)
	require.Len(t, file.Schedule["200"], 1)
	assert.Equal(t, "Tuesday", file.Schedule["200"][0].Day)
	assert.Len(t, file.Schedule["100"], 2)

	out, err = runApp(t, "conflicts", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "No conflicts.")
}

func TestMoveCommandRejectsCollision(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	out, err := runApp(t, "move", path, "--from", "200,Monday,09:00", "--to", "200,Monday,10:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, timetable.ErrMoveConflict))
	assert.Contains(t, out, "Move rejected (MOVE_CONFLICT)")
	assert.Contains(t, out, "room R1 at level 100 Monday 10:00 (CS101)")
}

func TestMoveCommandValidatesSlots(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	_, err := runApp(t, "move", path, "--from", "200,Monday", "--to", "200,Tuesday,09:00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")

	_, err = runApp(t, "move", path, "--to", "200,Tuesday,09:00")
	require.Error(t, err)

	_, err = runApp(t, "move", path, "--from", "200,Monday,09:00", "--to", "200,Sunday,09:00")
	assert.True(t, errors.Is(err, timetable.ErrOutOfRange))
}

const gappedSchedule = `{
  "schedule": {
    "100": [
      {"day": "Monday", "time": "09:00", "course_code": "CS101", "course_name": "Intro to Computing", "instructor": "Dr. Ada", "room": "R1", "department": "CS"},
      {"day": "Monday", "time": "11:00", "course_code": "CS101", "course_name": "Intro to Computing", "instructor": "Dr. Ada", "room": "R1", "department": "CS"}
    ]
  }
}`

func TestBlocksCommandKeepsGapsApart(t *testing.T) {
	path := writeFixture(t, gappedSchedule)

	out, err := runApp(t, "blocks", path)
	require.NoError(t, err)
	assert.Contains(t, out, "09:00 - 10:00")
	assert.Contains(t, out, "11:00 - 12:00")
	assert.NotContains(t, out, "2 slot(s)")
}

func TestMoveCommandUsesDayFrame(t *testing.T) {
	path := writeFixture(t, gappedSchedule)

	out, err := runApp(t, "move", path, "--from", "100,Monday,11:00", "--to", "100,Tuesday,14:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Moved CS101 from 100 Monday 11:00-12:00 to 100 Tuesday 14:00-15:00")

	_, err = runApp(t, "move", path, "--from", "100,Monday,11:00", "--to", "100,Tuesday,12:00", "--break", "12:00")
	assert.True(t, errors.Is(err, timetable.ErrOutOfRange))

	_, err = runApp(t, "move", path, "--from", "100,Monday,11:00", "--to", "100,Tuesday,14:00", "--day-start", "18:00", "--day-end", "08:00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "day frame")
}

func TestMoveCommandRequiresBlockStart(t *testing.T) {
	path := writeFixture(t, conflictedSchedule)

	out, err := runApp(t, "move", path, "--from", "100,Monday,10:00", "--to", "100,Tuesday,09:00")
	assert.True(t, errors.Is(err, timetable.ErrNotFound))
	assert.Contains(t, out, "Move rejected (NOT_FOUND)")
}

func TestReadScheduleFileErrors(t *testing.T) {
	_, err := readScheduleFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = readScheduleFile(writeFixture(t, `{"schedule": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no levels")

	_, err = readScheduleFile(writeFixture(t, `not json`))
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "timegrid dev")
}

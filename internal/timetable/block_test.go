package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bk(level Level, day, time, code, instructor, room string) Booking {
	return Booking{
		Day:        day,
		Time:       time,
		CourseCode: code,
		CourseName: code + " Lecture",
		Instructor: instructor,
		Room:       room,
		Department: "Computer Science",
		Level:      level,
	}
}

func workdayAxis(t *testing.T) *TimeAxis {
	t.Helper()
	slots, err := FrameSlots("08:00", "18:00", "", 60)
	require.NoError(t, err)
	axis, err := NewTimeAxis(DefaultDays, slots, 60)
	require.NoError(t, err)
	return axis
}

func TestConsolidateMergesContiguousRun(t *testing.T) {
	axis := workdayAxis(t)
	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Monday", "11:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "10:00", "CS101", "Dr. Ada", "R1"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	block := blocks[0]
	assert.Equal(t, 3, block.Duration)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, block.Times)
	assert.Equal(t, "09:00", block.Start)
	assert.Equal(t, "12:00", block.End)
	assert.Equal(t, "CS101 Lecture", block.CourseName)
	assert.Equal(t, Level("100"), block.Level)
}

func TestConsolidateSplitsAtGap(t *testing.T) {
	axis := workdayAxis(t)
	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "11:00", "CS101", "Dr. Ada", "R1"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	for _, block := range blocks {
		assert.Equal(t, 1, block.Duration)
	}
	assert.Equal(t, "09:00", blocks[0].Start)
	assert.Equal(t, "11:00", blocks[1].Start)
}

func TestConsolidateSplitsWhenAxisHasNoGapSlot(t *testing.T) {
	// the axis only knows booked times, so 09:00 and 11:00 are neighbours
	axis, err := NewTimeAxis(DefaultDays, []string{"09:00", "11:00"}, 60)
	require.NoError(t, err)

	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "11:00", "CS101", "Dr. Ada", "R1"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "10:00", blocks[0].End)
	assert.Equal(t, []string{"11:00"}, blocks[1].Times)
	assert.Equal(t, "12:00", blocks[1].End)
}

func TestConsolidateSplitsAcrossBreak(t *testing.T) {
	slots, err := FrameSlots("08:00", "18:00", "12:00", 60)
	require.NoError(t, err)
	axis, err := NewTimeAxis(DefaultDays, slots, 60)
	require.NoError(t, err)

	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Monday", "11:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "13:00", "CS101", "Dr. Ada", "R1"),
	})
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestConsolidateKeepsDifferentRoomsApart(t *testing.T) {
	axis := workdayAxis(t)
	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "10:00", "CS101", "Dr. Ada", "R2"),
	})
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestConsolidateOrdersByDayThenStart(t *testing.T) {
	axis := workdayAxis(t)
	blocks, err := Consolidate(axis, []Booking{
		bk("100", "Wednesday", "08:00", "CS103", "Dr. Cy", "R3"),
		bk("100", "Monday", "14:00", "CS102", "Dr. Bo", "R2"),
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Tuesday", "16:00", "CS104", "Dr. Di", "R4"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	codes := make([]string, len(blocks))
	for i, block := range blocks {
		codes[i] = block.CourseCode
	}
	assert.Equal(t, []string{"CS101", "CS102", "CS104", "CS103"}, codes)
}

func TestConsolidateFacultyUnionKeepsLevelsApart(t *testing.T) {
	axis := workdayAxis(t)
	blocks, err := Consolidate(axis, []Booking{
		bk("200", "Monday", "09:00", "GEN100", "Dr. Ada", "Hall"),
		bk("100", "Monday", "09:00", "GEN100", "Dr. Ada", "Hall"),
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, Level("100"), blocks[0].Level)
	assert.Equal(t, Level("200"), blocks[1].Level)
}

func TestConsolidateRejectsMalformedBookings(t *testing.T) {
	axis := workdayAxis(t)

	_, err := Consolidate(axis, []Booking{bk("100", "Sunday", "09:00", "CS101", "Dr. Ada", "R1")})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Consolidate(axis, []Booking{bk("100", "Monday", "09:30", "CS101", "Dr. Ada", "R1")})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	missingRoom := bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "")
	_, err = Consolidate(axis, []Booking{missingRoom})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "room")

	_, err = Consolidate(axis, []Booking{
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
		bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestScheduleValidateEnforcesOneBookingPerSlot(t *testing.T) {
	axis := workdayAxis(t)
	schedule := Schedule{
		"100": {
			bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
			bk("100", "Monday", "09:00", "CS102", "Dr. Bo", "R2"),
		},
	}
	err := schedule.Validate(axis)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	parallel := Schedule{
		"100": {bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1")},
		"200": {bk("200", "Monday", "09:00", "CS201", "Dr. Bo", "R2")},
	}
	assert.NoError(t, parallel.Validate(axis))
}

func TestEffectivePrefersOverlay(t *testing.T) {
	baseline := Schedule{
		"100": {bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1")},
		"200": {bk("200", "Monday", "09:00", "CS201", "Dr. Bo", "R2")},
	}
	overlay := Overlay{"100": {bk("100", "Friday", "09:00", "CS101", "Dr. Ada", "R1")}}

	effective := Effective(baseline, overlay)
	assert.Equal(t, "Friday", effective["100"][0].Day)
	assert.Equal(t, baseline["200"], effective["200"])
	assert.Len(t, effective.All(), 2)
}

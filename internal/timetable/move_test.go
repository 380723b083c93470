package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveFixture() Schedule {
	return Schedule{
		"100": {
			bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
			bk("100", "Monday", "10:00", "CS101", "Dr. Ada", "R1"),
			bk("100", "Monday", "13:00", "CS102", "Dr. Bo", "R2"),
		},
		"200": {
			bk("200", "Monday", "09:00", "CS201", "Dr. Cy", "R3"),
			bk("200", "Thursday", "14:00", "CS202", "Dr. Di", "R1"),
		},
		"300": {
			bk("300", "Wednesday", "08:00", "CS301", "Dr. Cy", "R4"),
			bk("300", "Friday", "11:00", "CS302", "Dr. Fe", "R3"),
			bk("300", "Thursday", "08:00", "CS303", "Dr. Gu", "R5"),
			bk("300", "Thursday", "09:00", "CS303", "Dr. Gu", "R5"),
			bk("300", "Thursday", "10:00", "CS303", "Dr. Gu", "R5"),
		},
	}
}

func TestApplyMoveSameLevelPreservesBlockShape(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()

	result, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Tuesday", TargetTime: "14:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []Level{"100"}, result.Changed)
	assert.Len(t, result.Overlay, 1)

	level := result.Overlay["100"]
	for _, b := range level {
		if b.CourseCode == "CS101" {
			assert.Equal(t, "Tuesday", b.Day)
		}
	}

	blocks, err := Consolidate(axis, level)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	moved := blocks[1]
	assert.Equal(t, "CS101", moved.CourseCode)
	assert.Equal(t, "Tuesday", moved.Day)
	assert.Equal(t, []string{"14:00", "15:00"}, moved.Times)
	assert.Equal(t, 2, moved.Duration)
	assert.Equal(t, "Dr. Ada", moved.Instructor)
	assert.Equal(t, "R1", moved.Room)
	assert.Equal(t, "Computer Science", moved.Department)

	assert.Equal(t, moved.Times, result.Moved.Times)
	assert.Equal(t, "16:00", result.Moved.End)
	assert.Equal(t, "09:00", result.From.Start)
	assert.Equal(t, "Monday", result.From.Day)
}

func TestApplyMoveAcrossLevelsTouchesTwoLists(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()
	untouched := baseline.Clone()

	result, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "200", TargetDay: "Wednesday", TargetTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []Level{"100", "200"}, result.Changed)
	assert.Len(t, result.Overlay, 2)

	effective := Effective(baseline, result.Overlay)
	assert.Equal(t, untouched["300"], effective["300"])
	assert.Len(t, effective["100"], 2)
	assert.Len(t, effective["200"], 3)

	var found bool
	for _, b := range effective["200"] {
		if b.CourseCode == "CS102" {
			found = true
			assert.Equal(t, "Wednesday", b.Day)
			assert.Equal(t, "10:00", b.Time)
			assert.Equal(t, Level("200"), b.Level)
		}
	}
	assert.True(t, found)
	assert.Equal(t, untouched, baseline)
}

func TestApplyMoveRejectsRoomCollisionInAnotherLevel(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()
	before := baseline.Clone()
	overlay := Overlay{}

	_, err := ApplyMove(axis, baseline, overlay, MoveRequest{
		SourceLevel: "300", SourceDay: "Friday", SourceTime: "11:00",
		TargetLevel: "300", TargetDay: "Monday", TargetTime: "09:00",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMoveConflict))

	var moveErr *Error
	require.True(t, errors.As(err, &moveErr))
	assert.Equal(t, []Collision{{
		Level: "200", Day: "Monday", Time: "09:00", Kind: CollisionRoom,
		Resource: "R3", CourseCode: "CS201",
	}}, moveErr.Collisions)

	assert.Equal(t, before, baseline)
	assert.Empty(t, overlay)
}

func TestApplyMoveRejectsInstructorCollision(t *testing.T) {
	axis := workdayAxis(t)

	_, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "200", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "200", TargetDay: "Wednesday", TargetTime: "08:00",
	})
	var moveErr *Error
	require.True(t, errors.As(err, &moveErr))
	assert.Equal(t, KindMoveConflict, moveErr.Kind)
	require.Len(t, moveErr.Collisions, 1)
	assert.Equal(t, CollisionInstructor, moveErr.Collisions[0].Kind)
	assert.Equal(t, "Dr. Cy", moveErr.Collisions[0].Resource)
	assert.Equal(t, Level("300"), moveErr.Collisions[0].Level)
}

func TestApplyMoveRejectsOccupiedSlotInTargetLevel(t *testing.T) {
	axis := workdayAxis(t)

	_, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "100", TargetDay: "Monday", TargetTime: "10:00",
	})
	var moveErr *Error
	require.True(t, errors.As(err, &moveErr))
	require.Len(t, moveErr.Collisions, 1)
	assert.Equal(t, CollisionSlot, moveErr.Collisions[0].Kind)
	assert.Equal(t, "CS101", moveErr.Collisions[0].CourseCode)
}

func TestApplyMoveRejectsPartialOverlap(t *testing.T) {
	axis := workdayAxis(t)

	_, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Monday", TargetTime: "12:00",
	})
	var moveErr *Error
	require.True(t, errors.As(err, &moveErr))
	require.Len(t, moveErr.Collisions, 1)
	assert.Equal(t, "13:00", moveErr.Collisions[0].Time)
	assert.Equal(t, "CS102", moveErr.Collisions[0].CourseCode)
}

func TestApplyMoveRejectsOverrun(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()
	before := baseline.Clone()

	_, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "300", SourceDay: "Thursday", SourceTime: "08:00",
		TargetLevel: "300", TargetDay: "Thursday", TargetTime: "16:00",
	})
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, before, baseline)
}

func TestApplyMoveRejectsUnknownTarget(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()

	_, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "100", TargetDay: "Sunday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "100", TargetDay: "Friday", TargetTime: "09:30",
	})
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "900", TargetDay: "Friday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestApplyMoveNotFound(t *testing.T) {
	axis := workdayAxis(t)

	_, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Friday", SourceTime: "08:00",
		TargetLevel: "100", TargetDay: "Friday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestApplyMoveIdentityIsNoOp(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()

	_, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Monday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrNoOp))

}

func TestApplyMoveRequiresBlockStart(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()
	before := baseline.Clone()

	_, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "10:00",
		TargetLevel: "100", TargetDay: "Monday", TargetTime: "08:00",
	})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "starts at 09:00")
	assert.Equal(t, before, baseline)

	_, err = ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "300", SourceDay: "Thursday", SourceTime: "09:00",
		TargetLevel: "300", TargetDay: "Tuesday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestApplyMoveRejectsTargetAcrossBreak(t *testing.T) {
	slots, err := FrameSlots("08:00", "18:00", "12:00", 60)
	require.NoError(t, err)
	axis, err := NewTimeAxis(DefaultDays, slots, 60)
	require.NoError(t, err)

	_, err = ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Tuesday", TargetTime: "11:00",
	})
	assert.True(t, errors.Is(err, ErrOutOfRange))

	result, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Tuesday", TargetTime: "13:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"13:00", "14:00"}, result.Moved.Times)
	assert.Equal(t, "15:00", result.Moved.End)
}

func TestApplyMoveShiftOntoOwnSlots(t *testing.T) {
	axis := workdayAxis(t)

	result, err := ApplyMove(axis, moveFixture(), Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Monday", TargetTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:00"}, result.Moved.Times)
	assert.Len(t, result.Overlay["100"], 3)
}

func TestApplyMoveChainsOverlays(t *testing.T) {
	axis := workdayAxis(t)
	baseline := moveFixture()

	first, err := ApplyMove(axis, baseline, Overlay{}, MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "200", TargetDay: "Friday", TargetTime: "08:00",
	})
	require.NoError(t, err)
	firstLevel200 := append([]Booking(nil), first.Overlay["200"]...)

	second, err := ApplyMove(axis, baseline, first.Overlay, MoveRequest{
		SourceLevel: "200", SourceDay: "Friday", SourceTime: "08:00",
		TargetLevel: "300", TargetDay: "Friday", TargetTime: "14:00",
	})
	require.NoError(t, err)

	assert.Equal(t, firstLevel200, first.Overlay["200"])
	assert.Len(t, second.Overlay, 3)
	assert.Len(t, second.Overlay["100"], 2)
	assert.Len(t, second.Overlay["200"], 2)
	assert.Len(t, second.Overlay["300"], 6)
}

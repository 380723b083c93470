package timetable

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, baseline Schedule) *Store {
	t.Helper()
	slots, err := FrameSlots("08:00", "18:00", "", 60)
	require.NoError(t, err)
	store, err := NewStore(baseline, StoreOptions{FrameSlots: slots})
	require.NoError(t, err)
	return store
}

func TestNewStoreRejectsMalformedBaseline(t *testing.T) {
	_, err := NewStore(Schedule{
		"100": {
			bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1"),
			bk("100", "Monday", "09:00", "CS102", "Dr. Bo", "R2"),
		},
	}, StoreOptions{})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewStore(Schedule{
		"100": {bk("100", "Sunday", "09:00", "CS101", "Dr. Ada", "R1")},
	}, StoreOptions{})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewStore(Schedule{
		"bad/level": {bk("bad/level", "Monday", "09:00", "CS101", "Dr. Ada", "R1")},
	}, StoreOptions{})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStoreNormalizesLevelsAndAxis(t *testing.T) {
	store := newTestStore(t, Schedule{
		"200": {{Day: "Monday", Time: "18:00", CourseCode: "CS201", Instructor: "Dr. Bo", Room: "R2"}},
		"100": {{Day: "Monday", Time: "09:00", CourseCode: "CS101", Instructor: "Dr. Ada", Room: "R1"}},
	})

	assert.Equal(t, []Level{"100", "200"}, store.Levels())
	assert.Equal(t, 11, store.Axis().Len())
	assert.Equal(t, "18:00", store.Axis().Slots()[10])

	level, err := store.Level("200")
	require.NoError(t, err)
	assert.Equal(t, Level("200"), level[0].Level)

	_, err = store.Level("999")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = store.Blocks("999")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStoreRejectedMoveLeavesStateUnchanged(t *testing.T) {
	store := newTestStore(t, moveFixture())
	before := store.Effective()
	version := store.Version()

	_, err := store.ApplyMove(MoveRequest{
		SourceLevel: "300", SourceDay: "Friday", SourceTime: "11:00",
		TargetLevel: "300", TargetDay: "Monday", TargetTime: "09:00",
	})
	assert.True(t, errors.Is(err, ErrMoveConflict))

	assert.Equal(t, before, store.Effective())
	assert.Equal(t, version, store.Version())
	assert.False(t, store.Dirty())
}

func TestStoreMoveThenReset(t *testing.T) {
	store := newTestStore(t, moveFixture())
	baseline := store.Effective()

	result, err := store.ApplyMove(MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "100", TargetDay: "Tuesday", TargetTime: "14:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", result.Moved.Day)
	assert.True(t, store.Dirty())
	assert.Equal(t, []Level{"100"}, store.EditedLevels())

	blocks, err := store.Blocks("100")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Tuesday", blocks[1].Day)
	assert.Equal(t, 2, blocks[1].Duration)

	// mutating a returned copy must not leak into the store
	effective := store.Effective()
	effective["100"][0].Room = "Basement"
	again := store.Effective()
	assert.NotEqual(t, "Basement", again["100"][0].Room)

	store.Reset()
	assert.False(t, store.Dirty())
	assert.Equal(t, baseline, store.Effective())
}

func TestStoreConflictsFollowWrites(t *testing.T) {
	store := newTestStore(t, Schedule{
		"100": {bk("100", "Monday", "09:00", "CS101", "Dr. Ada", "R1")},
		"200": {bk("200", "Monday", "09:00", "CS201", "Dr. Bo", "R1")},
	})

	conflicts, err := store.Conflicts()
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Monday-09:00-room-R1", conflicts[0].Key())

	cached, err := store.Conflicts()
	require.NoError(t, err)
	assert.Equal(t, conflicts, cached)

	_, err = store.ApplyMove(MoveRequest{
		SourceLevel: "200", SourceDay: "Monday", SourceTime: "09:00",
		TargetLevel: "200", TargetDay: "Tuesday", TargetTime: "09:00",
	})
	require.NoError(t, err)

	conflicts, err = store.Conflicts()
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	store.Reset()
	conflicts, err = store.Conflicts()
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestStoreFacultyBlocks(t *testing.T) {
	store := newTestStore(t, moveFixture())
	blocks, err := store.FacultyBlocks()
	require.NoError(t, err)
	assert.Len(t, blocks, 7)
	assert.Equal(t, "Monday", blocks[0].Day)
}

func TestStoreSelectAndDrop(t *testing.T) {
	store := newTestStore(t, moveFixture())

	_, err := store.Drop("100", "Friday", "09:00")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Select("100", "Friday", "09:00")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, ok := store.Selection()
	assert.False(t, ok)

	sel, err := store.Select("100", "Monday", "13:00")
	require.NoError(t, err)
	assert.Equal(t, "CS102", sel.Block.CourseCode)

	sel, err = store.Select("100", "Monday", "10:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", sel.Block.Start)
	assert.Equal(t, 2, sel.Block.Duration)

	current, ok := store.Selection()
	require.True(t, ok)
	assert.Equal(t, "CS101", current.Block.CourseCode)

	_, err = store.Drop("100", "Monday", "12:00")
	assert.True(t, errors.Is(err, ErrMoveConflict))
	_, ok = store.Selection()
	assert.True(t, ok)

	result, err := store.Drop("200", "Friday", "15:00")
	require.NoError(t, err)
	assert.Equal(t, Level("200"), result.Moved.Level)
	assert.Equal(t, []string{"15:00", "16:00"}, result.Moved.Times)
	_, ok = store.Selection()
	assert.False(t, ok)

	_, err = store.Select("200", "Friday", "16:00")
	require.NoError(t, err)
	store.CancelSelection()
	_, ok = store.Selection()
	assert.False(t, ok)
}

func TestStoreSetBaselineDiscardsEdits(t *testing.T) {
	store := newTestStore(t, moveFixture())
	_, err := store.ApplyMove(MoveRequest{
		SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
		TargetLevel: "100", TargetDay: "Friday", TargetTime: "13:00",
	})
	require.NoError(t, err)
	_, err = store.Select("100", "Monday", "09:00")
	require.NoError(t, err)

	require.NoError(t, store.SetBaseline(Schedule{
		"400": {bk("400", "Friday", "08:00", "CS401", "Dr. Ha", "R9")},
	}))
	assert.False(t, store.Dirty())
	assert.Equal(t, []Level{"400"}, store.Levels())
	_, ok := store.Selection()
	assert.False(t, ok)
}

func TestStoreConcurrentReadersAndWriters(t *testing.T) {
	store := newTestStore(t, moveFixture())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Conflicts()
			_ = store.Effective()
		}()
		go func() {
			defer wg.Done()
			_, _ = store.ApplyMove(MoveRequest{
				SourceLevel: "100", SourceDay: "Monday", SourceTime: "13:00",
				TargetLevel: "100", TargetDay: "Friday", TargetTime: "13:00",
			})
			store.Reset()
		}()
	}
	wg.Wait()

	effective := store.Effective()
	assert.Len(t, effective.All(), 10)
}

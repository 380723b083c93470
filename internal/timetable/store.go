package timetable

import (
	"sync"

	"github.com/samber/lo"
)

// StoreOptions configures the Time Axis a Store derives from each baseline.
type StoreOptions struct {
	Days        []string
	SlotMinutes int
	// FrameSlots are slots that exist even when no booking uses them,
	// usually the generator's working-day frame.
	FrameSlots []string
}

// Selection is the pending source of a two-step move.
type Selection struct {
	Level Level  `json:"level"`
	Day   string `json:"day"`
	Time  string `json:"time"`
	Block Block  `json:"block"`
}

// Store owns one baseline schedule and the overlay of manual edits on top of
// it. It is the only writer of schedule state; every method is safe for
// concurrent use and commits are serialised.
type Store struct {
	mu   sync.RWMutex
	opts StoreOptions

	axis     *TimeAxis
	baseline Schedule
	overlay  Overlay

	selection *Selection

	conflicts      []Conflict
	conflictsValid bool
	version        int64
}

// NewStore validates baseline and returns a store with an empty overlay.
func NewStore(baseline Schedule, opts StoreOptions) (*Store, error) {
	if len(opts.Days) == 0 {
		opts.Days = DefaultDays
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = DefaultSlotMinutes
	}
	s := &Store{opts: opts}
	if err := s.SetBaseline(baseline); err != nil {
		return nil, err
	}
	return s, nil
}

// SetBaseline installs a new generated schedule, discarding the overlay and any
// pending selection. A malformed baseline leaves the store untouched.
func (s *Store) SetBaseline(baseline Schedule) error {
	normalized := baseline.Normalize()
	for level := range normalized {
		if _, err := ParseLevel(string(level)); err != nil {
			return err
		}
	}
	axis, err := AxisFromSchedule(s.opts.Days, s.opts.SlotMinutes, normalized, s.opts.FrameSlots...)
	if err != nil {
		return err
	}
	if err := normalized.Validate(axis); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.axis = axis
	s.baseline = normalized
	s.overlay = Overlay{}
	s.selection = nil
	s.invalidateLocked()
	return nil
}

// Axis returns the time axis of the current baseline.
func (s *Store) Axis() *TimeAxis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.axis
}

// Levels lists the baseline's levels in display order.
func (s *Store) Levels() []Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline.Levels()
}

// Baseline returns a copy of the generated schedule.
func (s *Store) Baseline() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline.Clone()
}

// Effective returns a copy of the baseline with the overlay applied.
func (s *Store) Effective() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Effective(s.baseline, s.overlay).Clone()
}

// Level returns the current bookings of one level.
func (s *Store) Level(level Level) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.baseline.Has(level) {
		return nil, invalidInput("unknown level %q", level)
	}
	return append([]Booking(nil), s.currentLocked(level)...), nil
}

// Blocks consolidates one level's current bookings.
func (s *Store) Blocks(level Level) ([]Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.baseline.Has(level) {
		return nil, invalidInput("unknown level %q", level)
	}
	return Consolidate(s.axis, s.currentLocked(level))
}

// FacultyBlocks consolidates the faculty-wide union of every level.
func (s *Store) FacultyBlocks() ([]Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Consolidate(s.axis, Effective(s.baseline, s.overlay).All())
}

// Conflicts returns the double bookings of the effective schedule. The result
// is memoised until the next write.
func (s *Store) Conflicts() ([]Conflict, error) {
	s.mu.RLock()
	if s.conflictsValid {
		out := append([]Conflict(nil), s.conflicts...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.conflictsValid {
		conflicts, err := DetectConflicts(Effective(s.baseline, s.overlay).All())
		if err != nil {
			return nil, err
		}
		s.conflicts = conflicts
		s.conflictsValid = true
	}
	return append([]Conflict(nil), s.conflicts...), nil
}

// ApplyMove commits a move. A rejected move leaves the store unchanged.
func (s *Store) ApplyMove(req MoveRequest) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(req)
}

// Reset drops every manual edit and reverts to the baseline.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = Overlay{}
	s.selection = nil
	s.invalidateLocked()
}

// Select marks the block holding (level, day, time) as the pending move
// source, replacing any earlier selection. Any slot of the block selects it;
// the selection is anchored at the block's first slot.
func (s *Store) Select(level Level, day, time string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.baseline.Has(level) {
		return Selection{}, invalidInput("unknown level %q", level)
	}
	list := Effective(s.baseline, s.overlay).Normalize()[level]
	anchor, ok := lo.Find(list, func(b Booking) bool { return b.Day == day && b.Time == time })
	if !ok {
		return Selection{}, newError(KindNotFound, "level %s has no booking at %s %s", level, day, time)
	}
	run, err := runContaining(s.axis, list, anchor)
	if err != nil {
		return Selection{}, err
	}
	blocks, err := Consolidate(s.axis, run)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{Level: level, Day: day, Time: blocks[0].Start, Block: blocks[0]}
	s.selection = &sel
	return sel, nil
}

// Selection returns the pending selection, if any.
func (s *Store) Selection() (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

// CancelSelection clears the pending selection.
func (s *Store) CancelSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
}

// Drop moves the selected block to the target. The selection is cleared on
// success and kept when the move is rejected so the user can retry.
func (s *Store) Drop(level Level, day, time string) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return MoveResult{}, newError(KindNotFound, "no block is selected")
	}
	result, err := s.applyLocked(MoveRequest{
		SourceLevel: s.selection.Level,
		SourceDay:   s.selection.Day,
		SourceTime:  s.selection.Time,
		TargetLevel: level,
		TargetDay:   day,
		TargetTime:  time,
	})
	if err != nil {
		return MoveResult{}, err
	}
	s.selection = nil
	return result, nil
}

// Dirty reports whether any manual edit is applied.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlay) > 0
}

// EditedLevels lists the levels the overlay replaces.
func (s *Store) EditedLevels() []Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	levels := lo.Keys(s.overlay)
	SortLevels(levels)
	return levels
}

// Version increases on every committed write.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) applyLocked(req MoveRequest) (MoveResult, error) {
	result, err := ApplyMove(s.axis, s.baseline, s.overlay, req)
	if err != nil {
		return MoveResult{}, err
	}
	s.overlay = result.Overlay
	s.invalidateLocked()
	result.Overlay = result.Overlay.clone()
	return result, nil
}

func (s *Store) currentLocked(level Level) []Booking {
	if edited, ok := s.overlay[level]; ok {
		return edited
	}
	return s.baseline[level]
}

func (s *Store) invalidateLocked() {
	s.conflicts = nil
	s.conflictsValid = false
	s.version++
}

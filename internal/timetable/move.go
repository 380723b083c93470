package timetable

import (
	"github.com/samber/lo"
)

// MoveRequest relocates the block that starts at (SourceLevel, SourceDay,
// SourceTime) so that it starts at (TargetLevel, TargetDay, TargetTime).
type MoveRequest struct {
	SourceLevel Level  `json:"sourceLevel"`
	SourceDay   string `json:"sourceDay"`
	SourceTime  string `json:"sourceTime"`
	TargetLevel Level  `json:"targetLevel"`
	TargetDay   string `json:"targetDay"`
	TargetTime  string `json:"targetTime"`
}

// MoveResult carries the replacement overlay and a description of what moved.
type MoveResult struct {
	Overlay Overlay
	Moved   Block
	From    Block
	Changed []Level
}

type occupant struct {
	level   Level
	booking Booking
}

// ApplyMove validates and executes one block move against the effective
// schedule (baseline with overlay applied). Inputs are never modified: on
// success a new overlay is returned in which only the source and target level
// lists differ from the input overlay.
func ApplyMove(axis *TimeAxis, baseline Schedule, overlay Overlay, req MoveRequest) (MoveResult, error) {
	if axis == nil {
		return MoveResult{}, invalidInput("time axis is required")
	}
	if !baseline.Has(req.SourceLevel) {
		return MoveResult{}, invalidInput("unknown source level %q", req.SourceLevel)
	}
	if !baseline.Has(req.TargetLevel) {
		return MoveResult{}, invalidInput("unknown target level %q", req.TargetLevel)
	}

	effective := Effective(baseline, overlay).Normalize()
	sourceList := effective[req.SourceLevel]

	anchor, ok := lo.Find(sourceList, func(b Booking) bool {
		return b.Day == req.SourceDay && b.Time == req.SourceTime
	})
	if !ok {
		return MoveResult{}, newError(KindNotFound, "level %s has no booking at %s %s", req.SourceLevel, req.SourceDay, req.SourceTime)
	}
	run, err := runContaining(axis, sourceList, anchor)
	if err != nil {
		return MoveResult{}, err
	}
	if run[0].Time != anchor.Time {
		return MoveResult{}, newError(KindNotFound, "no block starts at %s %s in level %s; its block starts at %s", req.SourceDay, req.SourceTime, req.SourceLevel, run[0].Time)
	}
	length := len(run)

	if axis.DayIndex(req.TargetDay) < 0 {
		return MoveResult{}, newError(KindOutOfRange, "unknown target day %q", req.TargetDay)
	}
	targetStart := axis.SlotIndex(req.TargetTime)
	if targetStart < 0 {
		return MoveResult{}, newError(KindOutOfRange, "target time %q is not on the grid", req.TargetTime)
	}
	targetSlots, err := axis.SlotRange(targetStart, length)
	if err != nil {
		return MoveResult{}, newError(KindOutOfRange, "%d-slot block starting %s %s runs past the last slot", length, req.TargetDay, req.TargetTime)
	}
	if !axis.Contiguous(targetSlots) {
		return MoveResult{}, newError(KindOutOfRange, "%d-slot block starting %s %s would straddle a gap in the grid", length, req.TargetDay, req.TargetTime)
	}

	if req.SourceLevel == req.TargetLevel && anchor.Day == req.TargetDay && run[0].Time == targetSlots[0] {
		return MoveResult{}, newError(KindNoOp, "block already starts at %s %s", req.TargetDay, req.TargetTime)
	}

	moving := make(map[string]struct{}, length)
	for _, b := range run {
		moving[b.Time] = struct{}{}
	}
	isMoving := func(level Level, b Booking) bool {
		if level != req.SourceLevel || b.Day != anchor.Day {
			return false
		}
		_, ok := moving[b.Time]
		return ok
	}

	occupancy := make(map[string][]occupant)
	for _, level := range effective.Levels() {
		for _, b := range effective[level] {
			if b.Day != req.TargetDay || isMoving(level, b) {
				continue
			}
			occupancy[b.Time] = append(occupancy[b.Time], occupant{level: level, booking: b})
		}
	}

	var collisions []Collision
	for _, slot := range targetSlots {
		for _, occ := range occupancy[slot] {
			b := occ.booking
			if occ.level == req.TargetLevel {
				collisions = append(collisions, Collision{
					Level: occ.level, Day: b.Day, Time: slot, Kind: CollisionSlot,
					Resource: b.CourseCode, CourseCode: b.CourseCode,
				})
			}
			if b.Room == anchor.Room {
				collisions = append(collisions, Collision{
					Level: occ.level, Day: b.Day, Time: slot, Kind: CollisionRoom,
					Resource: b.Room, CourseCode: b.CourseCode,
				})
			}
			if b.Instructor == anchor.Instructor {
				collisions = append(collisions, Collision{
					Level: occ.level, Day: b.Day, Time: slot, Kind: CollisionInstructor,
					Resource: b.Instructor, CourseCode: b.CourseCode,
				})
			}
		}
	}
	if len(collisions) > 0 {
		return MoveResult{}, &Error{
			Kind:       KindMoveConflict,
			Message:    "target slots are occupied or would double-book a room or instructor",
			Collisions: collisions,
		}
	}

	moved := make([]Booking, length)
	placed := make([]placedBooking, length)
	for i, b := range run {
		b.Day = req.TargetDay
		b.Time = targetSlots[i]
		b.Level = req.TargetLevel
		moved[i] = b
		placed[i] = placedBooking{Booking: b, slotIdx: targetStart + i}
	}

	remaining := lo.Reject(sourceList, func(b Booking, _ int) bool {
		return isMoving(req.SourceLevel, b)
	})

	targetSet := lo.SliceToMap(targetSlots, func(slot string) (string, struct{}) { return slot, struct{}{} })
	stale := func(b Booking, _ int) bool {
		_, hit := targetSet[b.Time]
		return hit && b.Day == req.TargetDay && b.sameCourse(anchor)
	}

	next := overlay.clone()
	changed := []Level{req.SourceLevel}
	if req.SourceLevel == req.TargetLevel {
		list := lo.Reject(remaining, stale)
		next[req.TargetLevel] = append(list, moved...)
	} else {
		next[req.SourceLevel] = remaining
		list := lo.Reject(effective[req.TargetLevel], stale)
		next[req.TargetLevel] = append(list, moved...)
		changed = append(changed, req.TargetLevel)
	}

	movedBlock, err := newBlock(axis, placed)
	if err != nil {
		return MoveResult{}, err
	}
	fromPlaced := make([]placedBooking, length)
	for i, b := range run {
		fromPlaced[i] = placedBooking{Booking: b, slotIdx: axis.SlotIndex(b.Time)}
	}
	fromBlock, err := newBlock(axis, fromPlaced)
	if err != nil {
		return MoveResult{}, err
	}
	fromBlock.Level = req.SourceLevel

	return MoveResult{
		Overlay: next,
		Moved:   movedBlock,
		From:    fromBlock,
		Changed: changed,
	}, nil
}

package timetable

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultDays is the teaching week used when no day list is configured.
var DefaultDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// DefaultSlotMinutes is the length of one grid slot.
const DefaultSlotMinutes = 60

const minutesPerDay = 24 * 60

// TimeAxis is the canonical ordering of days and time slots every other
// component indexes against. It is immutable once built.
type TimeAxis struct {
	days        []string
	slots       []string
	dayIndex    map[string]int
	slotIndex   map[string]int
	slotMinutes int
}

// NewTimeAxis builds an axis from an ordered day list and an unordered set of
// "HH:MM" slots. Slots are de-duplicated and sorted chronologically.
func NewTimeAxis(days []string, slots []string, slotMinutes int) (*TimeAxis, error) {
	if len(days) == 0 {
		return nil, invalidInput("time axis requires at least one day")
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	axis := &TimeAxis{
		dayIndex:    make(map[string]int, len(days)),
		slotIndex:   make(map[string]int, len(slots)),
		slotMinutes: slotMinutes,
	}
	for _, day := range days {
		day = strings.TrimSpace(day)
		if day == "" {
			return nil, invalidInput("time axis day must not be empty")
		}
		if _, dup := axis.dayIndex[day]; dup {
			continue
		}
		axis.dayIndex[day] = len(axis.days)
		axis.days = append(axis.days, day)
	}

	unique := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if _, err := ParseClock(slot); err != nil {
			return nil, err
		}
		unique[slot] = struct{}{}
	}
	axis.slots = make([]string, 0, len(unique))
	for slot := range unique {
		axis.slots = append(axis.slots, slot)
	}
	// strict HH:MM strings sort chronologically
	sort.Strings(axis.slots)
	for i, slot := range axis.slots {
		axis.slotIndex[slot] = i
	}
	return axis, nil
}

// AxisFromSchedule derives the slot set as the sorted union of every time
// present in the schedule plus any extra slots (e.g. the configured day frame).
func AxisFromSchedule(days []string, slotMinutes int, schedule Schedule, extra ...string) (*TimeAxis, error) {
	slots := append([]string(nil), extra...)
	for _, bookings := range schedule {
		for _, b := range bookings {
			slots = append(slots, b.Time)
		}
	}
	return NewTimeAxis(days, slots, slotMinutes)
}

// FrameSlots lists slot start times between start and end, skipping the break
// slot. A slot is only included when it fits entirely before end.
func FrameSlots(start, end, breakAt string, slotMinutes int) ([]string, error) {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	from, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := parseBound(end)
	if err != nil {
		return nil, err
	}
	if to <= from {
		return nil, invalidInput("time frame end %s must be after start %s", end, start)
	}
	var slots []string
	for current := from; current+slotMinutes <= to; current += slotMinutes {
		slot := FormatClock(current)
		if breakAt != "" && slot == breakAt {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Days returns the ordered day list.
func (a *TimeAxis) Days() []string {
	return append([]string(nil), a.days...)
}

// Slots returns the ordered slot list.
func (a *TimeAxis) Slots() []string {
	return append([]string(nil), a.slots...)
}

// Len is the total slot count per day.
func (a *TimeAxis) Len() int {
	return len(a.slots)
}

// SlotMinutes is the length of one slot.
func (a *TimeAxis) SlotMinutes() int {
	return a.slotMinutes
}

// DayIndex returns the position of day, or -1 when unknown.
func (a *TimeAxis) DayIndex(day string) int {
	if idx, ok := a.dayIndex[day]; ok {
		return idx
	}
	return -1
}

// SlotIndex returns the position of time, or -1 when unknown.
func (a *TimeAxis) SlotIndex(time string) int {
	if idx, ok := a.slotIndex[time]; ok {
		return idx
	}
	return -1
}

// SlotAt returns the slot at index i.
func (a *TimeAxis) SlotAt(i int) (string, bool) {
	if i < 0 || i >= len(a.slots) {
		return "", false
	}
	return a.slots[i], true
}

// SlotRange returns n consecutive slots starting at index start.
func (a *TimeAxis) SlotRange(start, n int) ([]string, error) {
	if start < 0 || n < 0 || start+n > len(a.slots) {
		return nil, newError(KindOutOfRange, "slot range [%d,%d) exceeds %d slots", start, start+n, len(a.slots))
	}
	return append([]string(nil), a.slots[start:start+n]...), nil
}

// Adjacent reports whether next starts exactly one slot length after prev.
// Neighbouring axis slots are not adjacent when the axis skips a break or a
// gap between booked times.
func (a *TimeAxis) Adjacent(prev, next string) bool {
	from, err := ParseClock(prev)
	if err != nil {
		return false
	}
	to, err := ParseClock(next)
	if err != nil {
		return false
	}
	return to-from == a.slotMinutes
}

// Contiguous reports whether slots form one unbroken run.
func (a *TimeAxis) Contiguous(slots []string) bool {
	for i := 1; i < len(slots); i++ {
		if !a.Adjacent(slots[i-1], slots[i]) {
			return false
		}
	}
	return true
}

// AddMinutes adds minutes to an "HH:MM" time, rolling hour boundaries.
// Results past 24:00 are rejected rather than wrapped.
func (a *TimeAxis) AddMinutes(time string, minutes int) (string, error) {
	return addMinutes(time, minutes)
}

// AddSlots adds n slot lengths to time.
func (a *TimeAxis) AddSlots(time string, n int) (string, error) {
	return addMinutes(time, n*a.slotMinutes)
}

func addMinutes(time string, minutes int) (string, error) {
	base, err := ParseClock(time)
	if err != nil {
		return "", err
	}
	total := base + minutes
	if total < 0 || total > minutesPerDay {
		return "", newError(KindOutOfRange, "%s %+d minutes leaves the day", time, minutes)
	}
	return FormatClock(total), nil
}

// ParseClock parses a strict 24-hour "HH:MM" string into minutes since midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, invalidInput("time %q must be HH:MM", value)
	}
	var h, m int
	for i, ch := range value {
		if i == 2 {
			continue
		}
		if ch < '0' || ch > '9' {
			return 0, invalidInput("time %q must be HH:MM", value)
		}
	}
	h = int(value[0]-'0')*10 + int(value[1]-'0')
	m = int(value[3]-'0')*10 + int(value[4]-'0')
	if h > 23 || m > 59 {
		return 0, invalidInput("time %q out of range", value)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM". 1440 renders as "24:00".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func parseBound(value string) (int, error) {
	if value == "24:00" {
		return minutesPerDay, nil
	}
	return ParseClock(value)
}

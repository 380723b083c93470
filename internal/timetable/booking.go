package timetable

import (
	"strings"

	"github.com/samber/lo"
)

// Booking is one atomic grid cell. It is a value: moves replace bookings, they never edit them.
type Booking struct {
	Day        string `json:"day"`
	Time       string `json:"time"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	Instructor string `json:"instructor"`
	Room       string `json:"room"`
	Department string `json:"department"`
	Level      Level  `json:"level"`
}

// groupKey identifies the bookings that may consolidate into one block.
type groupKey struct {
	Level      Level
	Day        string
	CourseCode string
	Instructor string
	Room       string
	Department string
}

func (b Booking) groupKey() groupKey {
	return groupKey{
		Level:      b.Level,
		Day:        b.Day,
		CourseCode: b.CourseCode,
		Instructor: b.Instructor,
		Room:       b.Room,
		Department: b.Department,
	}
}

// sameCourse compares the assignment fields carried by a block, ignoring placement.
func (b Booking) sameCourse(o Booking) bool {
	return b.CourseCode == o.CourseCode &&
		b.Instructor == o.Instructor &&
		b.Room == o.Room &&
		b.Department == o.Department
}

// Validate checks the fields every grid operation depends on.
func (b Booking) Validate() error {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(b.Day) == "" {
		missing = append(missing, "day")
	}
	if strings.TrimSpace(b.Time) == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(b.CourseCode) == "" {
		missing = append(missing, "course_code")
	}
	if strings.TrimSpace(b.Instructor) == "" {
		missing = append(missing, "instructor")
	}
	if strings.TrimSpace(b.Room) == "" {
		missing = append(missing, "room")
	}
	if len(missing) > 0 {
		return invalidInput("booking %s %s %s missing %s", b.Level, b.Day, b.Time, strings.Join(missing, ", "))
	}
	if _, err := ParseClock(b.Time); err != nil {
		return err
	}
	return nil
}

// Schedule maps each level to its booking list. Order inside a list carries no meaning.
type Schedule map[Level][]Booking

// Levels returns the schedule's levels in display order.
func (s Schedule) Levels() []Level {
	levels := lo.Keys(s)
	SortLevels(levels)
	return levels
}

// Has reports whether level is part of the schedule.
func (s Schedule) Has(level Level) bool {
	_, ok := s[level]
	return ok
}

// Clone returns a deep copy safe to hand to callers.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for level, bookings := range s {
		out[level] = append([]Booking(nil), bookings...)
	}
	return out
}

// All returns the faculty-wide union of every level's bookings, in level order.
func (s Schedule) All() []Booking {
	var all []Booking
	for _, level := range s.Levels() {
		all = append(all, s[level]...)
	}
	return all
}

// Normalize returns a copy in which every booking carries the level it is filed under.
func (s Schedule) Normalize() Schedule {
	out := make(Schedule, len(s))
	for level, bookings := range s {
		out[level] = lo.Map(bookings, func(b Booking, _ int) Booking {
			b.Level = level
			return b
		})
	}
	return out
}

// Validate enforces booking completeness, Time Axis membership and the
// one-booking-per-slot rule inside each level.
func (s Schedule) Validate(axis *TimeAxis) error {
	for _, level := range s.Levels() {
		seen := make(map[[2]string]Booking, len(s[level]))
		for _, b := range s[level] {
			if err := b.Validate(); err != nil {
				return err
			}
			if axis != nil {
				if axis.DayIndex(b.Day) < 0 {
					return invalidInput("level %s: unknown day %q", level, b.Day)
				}
				if axis.SlotIndex(b.Time) < 0 {
					return invalidInput("level %s: unknown time %q", level, b.Time)
				}
			}
			slot := [2]string{b.Day, b.Time}
			if prev, dup := seen[slot]; dup {
				return invalidInput("level %s: %s and %s both occupy %s %s", level, prev.CourseCode, b.CourseCode, b.Day, b.Time)
			}
			seen[slot] = b
		}
	}
	return nil
}

// Overlay holds replacement booking lists produced by manual moves.
type Overlay map[Level][]Booking

// clone copies the map; the lists are shared because they are never mutated in place.
func (o Overlay) clone() Overlay {
	out := make(Overlay, len(o)+1)
	for level, bookings := range o {
		out[level] = bookings
	}
	return out
}

// Effective applies the overlay to the baseline level by level.
func Effective(baseline Schedule, overlay Overlay) Schedule {
	out := make(Schedule, len(baseline))
	for level, bookings := range baseline {
		if edited, ok := overlay[level]; ok {
			out[level] = edited
			continue
		}
		out[level] = bookings
	}
	return out
}

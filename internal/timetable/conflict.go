package timetable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ConflictKind is the resource dimension a double booking happened on.
type ConflictKind string

const (
	ConflictRoom       ConflictKind = "room"
	ConflictInstructor ConflictKind = "instructor"
)

// Conflict reports two or more bookings sharing a resource at the same slot.
type Conflict struct {
	Day      string       `json:"day"`
	Time     string       `json:"time"`
	Kind     ConflictKind `json:"kind"`
	Resource string       `json:"resource"`
	Count    int          `json:"count"`
	Levels   []Level      `json:"levels"`
}

// Key is the flattened "<day>-<time>-<kind>-<resource>" form used by renderers.
func (c Conflict) Key() string {
	return ConflictKey(c.Day, c.Time, c.Kind, c.Resource)
}

// Message renders the conflict for people, e.g. "Room R1 double-booked at Monday 09:00".
func (c Conflict) Message() string {
	label := "Room"
	if c.Kind == ConflictInstructor {
		label = "Instructor"
	}
	return fmt.Sprintf("%s %s double-booked at %s %s", label, c.Resource, c.Day, c.Time)
}

// ConflictKey builds the flattened membership key.
func ConflictKey(day, time string, kind ConflictKind, resource string) string {
	return fmt.Sprintf("%s-%s-%s-%s", day, time, kind, resource)
}

type conflictKey struct {
	day      string
	time     string
	kind     ConflictKind
	resource string
}

type tally struct {
	count  int
	levels map[Level]struct{}
}

// DetectConflicts tallies room and instructor usage per slot over the given
// bookings (normally the faculty-wide union) and reports every key used more
// than once. The result is a pure function of the input multiset.
func DetectConflicts(bookings []Booking) ([]Conflict, error) {
	tallies := make(map[conflictKey]*tally)
	for _, b := range bookings {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		for _, key := range []conflictKey{
			{day: b.Day, time: b.Time, kind: ConflictRoom, resource: b.Room},
			{day: b.Day, time: b.Time, kind: ConflictInstructor, resource: b.Instructor},
		} {
			t, ok := tallies[key]
			if !ok {
				t = &tally{levels: make(map[Level]struct{})}
				tallies[key] = t
			}
			t.count++
			t.levels[b.Level] = struct{}{}
		}
	}

	conflicts := make([]Conflict, 0)
	for key, t := range tallies {
		if t.count < 2 {
			continue
		}
		levels := lo.Keys(t.levels)
		SortLevels(levels)
		conflicts = append(conflicts, Conflict{
			Day:      key.day,
			Time:     key.time,
			Kind:     key.kind,
			Resource: key.resource,
			Count:    t.count,
			Levels:   levels,
		})
	}
	sortConflicts(conflicts)
	return conflicts, nil
}

var weekOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func dayRank(day string) int {
	if rank, ok := weekOrder[strings.ToLower(day)]; ok {
		return rank
	}
	return len(weekOrder)
}

func sortConflicts(conflicts []Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if ra, rb := dayRank(a.Day), dayRank(b.Day); ra != rb {
			return ra < rb
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Resource < b.Resource
	})
}

// ConflictSet gives O(1) membership over flattened conflict keys.
type ConflictSet map[string]struct{}

// NewConflictSet indexes conflicts by key.
func NewConflictSet(conflicts []Conflict) ConflictSet {
	set := make(ConflictSet, len(conflicts))
	for _, c := range conflicts {
		set[c.Key()] = struct{}{}
	}
	return set
}

// Has reports whether the resource is double-booked at day/time.
func (s ConflictSet) Has(day, time string, kind ConflictKind, resource string) bool {
	_, ok := s[ConflictKey(day, time, kind, resource)]
	return ok
}

// Involves reports whether the booking takes part in any conflict.
func (s ConflictSet) Involves(b Booking) bool {
	return s.Has(b.Day, b.Time, ConflictRoom, b.Room) || s.Has(b.Day, b.Time, ConflictInstructor, b.Instructor)
}

// Keys returns the set members sorted.
func (s ConflictSet) Keys() []string {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return keys
}

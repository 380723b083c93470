package timetable

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Level identifies an independent scheduling grid, typically an academic year or cohort ("100", "200").
type Level string

var levelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.\-]{0,31}$`)

// ParseLevel validates a raw level identifier coming from upstream payloads.
func ParseLevel(raw string) (Level, error) {
	trimmed := strings.TrimSpace(raw)
	if !levelPattern.MatchString(trimmed) {
		return "", invalidInput("invalid level %q", raw)
	}
	return Level(trimmed), nil
}

// String implements fmt.Stringer.
func (l Level) String() string {
	return string(l)
}

// SortLevels orders levels numerically when both sides are numbers, lexically otherwise.
func SortLevels(levels []Level) {
	sort.Slice(levels, func(i, j int) bool {
		return levelLess(levels[i], levels[j])
	})
}

func levelLess(a, b Level) bool {
	ai, aErr := strconv.Atoi(string(a))
	bi, bErr := strconv.Atoi(string(b))
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

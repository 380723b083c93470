package timetable

import (
	"sort"
)

// Block is a maximal contiguous run of bookings sharing level, day, course,
// instructor, room and department. Blocks are derived, never stored.
type Block struct {
	Level      Level    `json:"level"`
	Day        string   `json:"day"`
	Times      []string `json:"times"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	CourseCode string   `json:"course_code"`
	CourseName string   `json:"course_name"`
	Instructor string   `json:"instructor"`
	Room       string   `json:"room"`
	Department string   `json:"department"`
	Duration   int      `json:"duration"`
}

type placedBooking struct {
	Booking
	slotIdx int
}

// Consolidate groups bookings into blocks sorted by (day, start slot). Gaps
// inside a group split it into separate blocks. Any booking the axis does not
// know fails the whole call.
func Consolidate(axis *TimeAxis, bookings []Booking) ([]Block, error) {
	if axis == nil {
		return nil, invalidInput("time axis is required")
	}
	groups := make(map[groupKey][]placedBooking)
	order := make([]groupKey, 0)
	for _, b := range bookings {
		placed, err := place(axis, b)
		if err != nil {
			return nil, err
		}
		key := b.groupKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], placed)
	}

	blocks := make([]Block, 0, len(order))
	for _, key := range order {
		runs, err := splitRuns(axis, groups[key])
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			block, err := newBlock(axis, run)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		di, dj := axis.DayIndex(blocks[i].Day), axis.DayIndex(blocks[j].Day)
		if di != dj {
			return di < dj
		}
		si, sj := axis.SlotIndex(blocks[i].Start), axis.SlotIndex(blocks[j].Start)
		if si != sj {
			return si < sj
		}
		if blocks[i].Level != blocks[j].Level {
			return levelLess(blocks[i].Level, blocks[j].Level)
		}
		return blocks[i].CourseCode < blocks[j].CourseCode
	})
	return blocks, nil
}

func place(axis *TimeAxis, b Booking) (placedBooking, error) {
	if err := b.Validate(); err != nil {
		return placedBooking{}, err
	}
	if axis.DayIndex(b.Day) < 0 {
		return placedBooking{}, invalidInput("unknown day %q for %s", b.Day, b.CourseCode)
	}
	slotIdx := axis.SlotIndex(b.Time)
	if slotIdx < 0 {
		return placedBooking{}, invalidInput("unknown time %q for %s", b.Time, b.CourseCode)
	}
	return placedBooking{Booking: b, slotIdx: slotIdx}, nil
}

// splitRuns sorts one group by slot index and cuts it wherever two bookings
// are not one slot length apart.
func splitRuns(axis *TimeAxis, group []placedBooking) ([][]placedBooking, error) {
	sorted := append([]placedBooking(nil), group...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].slotIdx < sorted[j].slotIdx })

	var runs [][]placedBooking
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) {
			if sorted[i].slotIdx == sorted[i-1].slotIdx {
				return nil, invalidInput("level %s: %s booked twice at %s %s", sorted[i].Level, sorted[i].CourseCode, sorted[i].Day, sorted[i].Time)
			}
			if sorted[i].slotIdx == sorted[i-1].slotIdx+1 && axis.Adjacent(sorted[i-1].Time, sorted[i].Time) {
				continue
			}
		}
		runs = append(runs, sorted[start:i])
		start = i
	}
	return runs, nil
}

func newBlock(axis *TimeAxis, run []placedBooking) (Block, error) {
	first := run[0]
	times := make([]string, len(run))
	for i, p := range run {
		times[i] = p.Time
	}
	end, err := axis.AddSlots(first.Time, len(run))
	if err != nil {
		return Block{}, err
	}
	return Block{
		Level:      first.Level,
		Day:        first.Day,
		Times:      times,
		Start:      first.Time,
		End:        end,
		CourseCode: first.CourseCode,
		CourseName: first.CourseName,
		Instructor: first.Instructor,
		Room:       first.Room,
		Department: first.Department,
		Duration:   len(run),
	}, nil
}

// runContaining resolves the block a single booking belongs to inside one level's list.
func runContaining(axis *TimeAxis, list []Booking, anchor Booking) ([]Booking, error) {
	key := anchor.groupKey()
	var group []placedBooking
	for _, b := range list {
		if b.groupKey() != key {
			continue
		}
		placed, err := place(axis, b)
		if err != nil {
			return nil, err
		}
		group = append(group, placed)
	}
	runs, err := splitRuns(axis, group)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		for _, p := range run {
			if p.Time == anchor.Time {
				out := make([]Booking, len(run))
				for i, r := range run {
					out[i] = r.Booking
				}
				return out, nil
			}
		}
	}
	return nil, newError(KindNotFound, "no block at %s %s", anchor.Day, anchor.Time)
}

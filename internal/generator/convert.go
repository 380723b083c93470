package generator

import (
	"github.com/samber/lo"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

// ToSchedule turns generator entries into a grid schedule. The generator
// already emits one entry per occupied slot.
func (r *Result) ToSchedule() (timetable.Schedule, error) {
	schedule := make(timetable.Schedule, len(r.Schedule))
	for rawLevel, entries := range r.Schedule {
		level, err := timetable.ParseLevel(rawLevel)
		if err != nil {
			return nil, err
		}
		schedule[level] = append(schedule[level], lo.Map(entries, func(e Entry, _ int) timetable.Booking {
			return timetable.Booking{
				Day:        e.Day,
				Time:       e.Time,
				CourseCode: e.CourseCode,
				CourseName: e.CourseName,
				Instructor: e.Instructor,
				Room:       e.Room,
				Department: e.Department,
				Level:      level,
			}
		})...)
	}
	return schedule, nil
}

// WithDefaultDays fills empty instructor availability with the grid days.
func (r Request) WithDefaultDays(days []string) Request {
	out := r
	out.Instructors = lo.Map(r.Instructors, func(in Instructor, _ int) Instructor {
		if len(in.AvailableDays) == 0 {
			in.AvailableDays = append([]string(nil), days...)
		}
		return in
	})
	return out
}

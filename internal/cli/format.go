package cli

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

func (a *App) printBlocks(title string, blocks []timetable.Block, set timetable.ConflictSet, withLevel bool) {
	colorHeader.Fprintf(a.out, "=== %s ===\n", title)
	if len(blocks) == 0 {
		colorMuted.Fprintln(a.out, "No blocks.")
		return
	}
	for _, b := range blocks {
		line := formatBlockRow(b, withLevel)
		if blockInConflict(b, set) {
			colorConflict.Fprintln(a.out, line+"  !")
			continue
		}
		fmt.Fprintln(a.out, line)
	}
}

func formatBlockRow(b timetable.Block, withLevel bool) string {
	var sb strings.Builder
	if withLevel {
		fmt.Fprintf(&sb, "%-6s ", b.Level)
	}
	fmt.Fprintf(&sb, "%-10s %s - %s  %-8s %-24s %-20s %-8s %d slot(s)",
		b.Day, b.Start, b.End, b.CourseCode, truncate(b.CourseName, 24), truncate(b.Instructor, 20), b.Room, b.Duration)
	return sb.String()
}

func blockInConflict(b timetable.Block, set timetable.ConflictSet) bool {
	return lo.SomeBy(b.Times, func(t string) bool {
		return set.Has(b.Day, t, timetable.ConflictRoom, b.Room) ||
			set.Has(b.Day, t, timetable.ConflictInstructor, b.Instructor)
	})
}

func describeBlock(b timetable.Block) string {
	return fmt.Sprintf("%s %s %s-%s", b.Level, b.Day, b.Start, b.End)
}

func joinLevels(levels []timetable.Level) string {
	return strings.Join(lo.Map(levels, func(l timetable.Level, _ int) string { return l.String() }), ", ")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

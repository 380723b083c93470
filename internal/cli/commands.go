package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

// errConflictsFound makes `conflicts --strict` exit non-zero.
var errConflictsFound = errors.New("schedule has conflicts")

func (a *App) blocksCmd() *cobra.Command {
	var level string
	var faculty bool

	cmd := &cobra.Command{
		Use:   "blocks FILE",
		Short: "List consolidated blocks of a schedule",
		Long: `List the blocks of every level, of one level (--level) or of the
whole faculty (--faculty). Blocks taking part in a double booking are
highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, store, err := a.openStore(args[0])
			if err != nil {
				return err
			}
			conflicts, err := store.Conflicts()
			if err != nil {
				return err
			}
			set := timetable.NewConflictSet(conflicts)

			if faculty {
				blocks, err := store.FacultyBlocks()
				if err != nil {
					return err
				}
				a.printBlocks("Faculty", blocks, set, true)
				return nil
			}

			levels := store.Levels()
			if level != "" {
				parsed, err := timetable.ParseLevel(level)
				if err != nil {
					return err
				}
				levels = []timetable.Level{parsed}
			}
			for i, lv := range levels {
				blocks, err := store.Blocks(lv)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				a.printBlocks("Level "+lv.String(), blocks, set, false)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", "", "Only list this level")
	cmd.Flags().BoolVar(&faculty, "faculty", false, "List the faculty-wide union of all levels")
	cmd.MarkFlagsMutuallyExclusive("level", "faculty")
	return cmd
}

func (a *App) conflictsCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "conflicts FILE",
		Short: "Report room and instructor double bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, store, err := a.openStore(args[0])
			if err != nil {
				return err
			}
			conflicts, err := store.Conflicts()
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				colorOK.Fprintln(a.out, "No conflicts.")
				return nil
			}
			colorHeader.Fprintf(a.out, "=== %d conflict(s) ===\n", len(conflicts))
			for _, c := range conflicts {
				colorConflict.Fprintf(a.out, "%s", c.Message())
				colorMuted.Fprintf(a.out, "  (%d bookings, levels %s)\n", c.Count, joinLevels(c.Levels))
			}
			if strict {
				return errConflictsFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any conflict exists")
	return cmd
}

func (a *App) moveCmd() *cobra.Command {
	var from, to, out string

	cmd := &cobra.Command{
		Use:   "move FILE",
		Short: "Move one block to a new slot",
		Long: `Move the block holding --from so that it starts at --to. Both slots
are written as LEVEL,DAY,TIME, for example --from 100,Monday,09:00.

The result is written to --out when given; the input file is never
modified in place unless --out names it.`,
		Example: "  timegrid move schedule.json --from 100,Monday,09:00 --to 100,Tuesday,10:00 --out moved.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			source, err := parseSlot(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			target, err := parseSlot(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			file, store, err := a.openStore(args[0])
			if err != nil {
				return err
			}

			result, err := store.ApplyMove(timetable.MoveRequest{
				SourceLevel: source.level,
				SourceDay:   source.day,
				SourceTime:  source.time,
				TargetLevel: target.level,
				TargetDay:   target.day,
				TargetTime:  target.time,
			})
			if err != nil {
				a.printMoveError(err)
				return err
			}

			colorOK.Fprintf(a.out, "Moved %s from %s to %s\n", result.Moved.CourseCode, describeBlock(result.From), describeBlock(result.Moved))

			conflicts, err := store.Conflicts()
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				colorConflict.Fprintf(a.out, "Schedule still has %d conflict(s)\n", len(conflicts))
			}

			if out == "" {
				return nil
			}
			file.Schedule = store.Effective()
			if err := writeScheduleFile(out, file); err != nil {
				return err
			}
			colorMuted.Fprintf(a.out, "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source slot as LEVEL,DAY,TIME")
	cmd.Flags().StringVar(&to, "to", "", "Target start slot as LEVEL,DAY,TIME")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the edited schedule to this file")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

type slotRef struct {
	level timetable.Level
	day   string
	time  string
}

func parseSlot(raw string) (slotRef, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return slotRef{}, fmt.Errorf("expected LEVEL,DAY,TIME, got %q", raw)
	}
	level, err := timetable.ParseLevel(parts[0])
	if err != nil {
		return slotRef{}, err
	}
	day := strings.TrimSpace(parts[1])
	clock := strings.TrimSpace(parts[2])
	if day == "" || clock == "" {
		return slotRef{}, fmt.Errorf("expected LEVEL,DAY,TIME, got %q", raw)
	}
	return slotRef{level: level, day: day, time: clock}, nil
}

func (a *App) printMoveError(err error) {
	var engineErr *timetable.Error
	if !errors.As(err, &engineErr) {
		return
	}
	colorConflict.Fprintf(a.out, "Move rejected (%s): %s\n", engineErr.Kind, engineErr.Message)
	for _, c := range engineErr.Collisions {
		colorMuted.Fprintf(a.out, "  %s %s at level %s %s %s (%s)\n", c.Kind, c.Resource, c.Level, c.Day, c.Time, c.CourseCode)
	}
}

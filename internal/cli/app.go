package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

var (
	colorHeader   = color.New(color.Bold)
	colorConflict = color.New(color.FgRed, color.Bold)
	colorOK       = color.New(color.FgGreen)
	colorMuted    = color.New(color.FgWhite, color.Faint)
)

// App is the offline timetable editor. It works on schedule files exported
// from the API and never talks to the server.
type App struct {
	root *cobra.Command
	out  io.Writer

	days        []string
	slotMinutes int
	dayStart    string
	dayEnd      string
	breakAt     string
	noColor     bool
}

// NewApp builds the command tree. A nil out writes to stdout.
func NewApp(out io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	a := &App{out: out}

	a.root = &cobra.Command{
		Use:   "timegrid",
		Short: "Inspect and edit weekly timetables offline",
		Long: `timegrid reads a schedule file (the body of a saved timetable)
and lets you list consolidated blocks, check double bookings and move
blocks with the same rules the API enforces.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}
	a.root.SetOut(out)
	a.root.SetErr(out)

	flags := a.root.PersistentFlags()
	flags.StringSliceVar(&a.days, "days", timetable.DefaultDays, "Ordered week days of the grid")
	flags.IntVar(&a.slotMinutes, "slot-minutes", timetable.DefaultSlotMinutes, "Length of one grid slot in minutes")
	flags.StringVar(&a.dayStart, "day-start", "08:00", "First slot of the teaching day")
	flags.StringVar(&a.dayEnd, "day-end", "18:00", "End of the teaching day")
	flags.StringVar(&a.breakAt, "break", "", "Slot left out of the day, e.g. 12:00")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable color output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.blocksCmd())
	a.root.AddCommand(a.conflictsCmd())
	a.root.AddCommand(a.moveCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "timegrid %s (commit: %s)\n", Version, Commit)
		},
	}
}

// SetArgs overrides os.Args, mainly for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

func (a *App) storeOptions() (timetable.StoreOptions, error) {
	frame, err := timetable.FrameSlots(a.dayStart, a.dayEnd, a.breakAt, a.slotMinutes)
	if err != nil {
		return timetable.StoreOptions{}, fmt.Errorf("day frame: %w", err)
	}
	return timetable.StoreOptions{Days: a.days, SlotMinutes: a.slotMinutes, FrameSlots: frame}, nil
}

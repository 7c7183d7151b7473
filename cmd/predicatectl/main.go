// Command predicatectl builds filter trees from YAML fixtures and shows what
// they compile to, in memory and in SQL.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nlstn/go-predicateview"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type options struct {
	verbose   bool
	timezone  string
	weekStart string
	dsn       string
	run       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "predicatectl",
		Short:        "Inspect filter trees and the predicates they compile to",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log recompiles and decodes to stderr")
	root.PersistentFlags().StringVar(&opts.timezone, "tz", "UTC", "Time zone date rows compile against")
	root.PersistentFlags().StringVar(&opts.weekStart, "week-start", "sunday", "First day of the week: sunday or monday")

	sqlCmd := &cobra.Command{
		Use:   "sql FIXTURE",
		Short: "Translate the fixture's filter to a SQL WHERE clause",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
		},
	}
	sqlCmd.Flags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN; an in-memory SQLite database is used when empty")
	sqlCmd.Flags().BoolVar(&opts.run, "run", false, "Insert the fixture's books and run the query")

	root.AddCommand(
		&cobra.Command{
			Use:   "templates",
			Short: "List the row templates of the book model",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runTemplates(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "eval FIXTURE",
			Short: "Compile the fixture's filter and evaluate it against its books",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runEval(cmd.OutOrStdout(), opts, args[0])
			},
		},
		sqlCmd,
		&cobra.Command{
			Use:   "roundtrip FIXTURE",
			Short: "Compile the fixture's filter, decode the predicate and compare the trees",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRoundTrip(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
			},
		},
	)
	return root
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *options) calendar() (predicateview.Calendar, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return predicateview.Calendar{}, fmt.Errorf("invalid time zone: %w", err)
	}
	cal := predicateview.Calendar{Location: loc}
	switch o.weekStart {
	case "sunday":
		cal.FirstWeekday = time.Sunday
	case "monday":
		cal.FirstWeekday = time.Monday
	default:
		return predicateview.Calendar{}, fmt.Errorf("invalid week start %q", o.weekStart)
	}
	return cal, nil
}

// control loads the fixture at path and builds its filter in a new control.
func (o *options) control(path string) (*predicateview.Control, *fixture, error) {
	f, err := loadFixture(path)
	if err != nil {
		return nil, nil, err
	}
	templates, err := bookTemplates()
	if err != nil {
		return nil, nil, err
	}
	cal, err := o.calendar()
	if err != nil {
		return nil, nil, err
	}
	c, err := predicateview.New(templates,
		predicateview.WithLogger(o.logger()),
		predicateview.WithCalendar(cal))
	if err != nil {
		return nil, nil, err
	}
	if err := c.Edit(func(tr *predicateview.Tree) error { return build(tr, f.Filter) }); err != nil {
		return nil, nil, fmt.Errorf("invalid filter: %w", err)
	}
	return c, f, nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func titles(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

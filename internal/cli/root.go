// Package cli provides the nowtask command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/nowtask/internal/logging"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/store"
	"github.com/nhle/nowtask/internal/watch"
)

// Command group IDs.
const (
	groupTasks = "tasks"
	groupGraph = "graph"
	groupView  = "view"
)

// Env is everything a command runs against.
type Env struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      store.Store
	Service    *service.Service
	Watcher    *watch.Watcher
	Logger     *slog.Logger

	closers []io.Closer
}

// Close releases the store and the log file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewEnv wires a service and a watcher around st. The watcher is not
// started.
func NewEnv(cfg *model.AppConfig, st store.Store, logger *slog.Logger, opts ...service.Option) *Env {
	var svc *service.Service
	w := watch.New(func(ctx context.Context) (*model.Task, error) {
		return svc.CurrentTask(ctx)
	}, watch.WithLogger(logger))
	if err := w.SetSchedule(cfg.Schedule.RefreshCron); err != nil {
		logger.Warn("keeping default refresh schedule", "error", err)
	}

	opts = append([]service.Option{
		service.WithScheduleConfig(cfg.Schedule),
		service.WithLogger(logger),
		service.WithNotifier(w),
	}, opts...)
	svc = service.New(st, opts...)

	return &Env{Config: cfg, Store: st, Service: svc, Watcher: w, Logger: logger}
}

// Opener builds the Env for a command invocation.
type Opener func(configPath, dbPath string, verbose bool) (*Env, error)

// Open loads the configuration, the log file and the SQLite store.
func Open(configPath, dbPath string, verbose bool) (*Env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger, logFile, err := logging.New(cfg.Log, logging.Options{Verbose: verbose, Component: "cli"})
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	path := model.ExpandHome(cfg.Database.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	env := NewEnv(cfg, st, logger)
	env.ConfigPath = configPath
	env.closers = []io.Closer{logFile, st}
	return env, nil
}

// state carries the persistent flags and the Env of one invocation.
type state struct {
	open       Opener
	configPath string
	dbPath     string
	verbose    bool
	jsonOut    bool

	env *Env
}

func (s *state) close() error {
	if s.env == nil {
		return nil
	}
	err := s.env.Close()
	s.env = nil
	return err
}

// Execute runs the command line and releases resources afterwards.
func Execute(ctx context.Context, version string, args []string) error {
	root, st := newRootCommand(version, Open)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if closeErr := st.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// NewRootCommand creates the root command backed by the default Opener.
func NewRootCommand(version string) *cobra.Command {
	root, _ := newRootCommand(version, Open)
	return root
}

func newRootCommand(version string, open Opener) (*cobra.Command, *state) {
	st := &state{open: open}

	root := &cobra.Command{
		Use:   "nowtask",
		Short: "Tells you the one task to do right now",
		Long: `nowtask keeps tasks with prerequisites, recurrences and time windows,
and always knows the single task you should act on next.

Run without arguments to open the terminal UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || st.env != nil {
				return nil
			}
			env, err := st.open(st.configPath, st.dbPath, st.verbose)
			if err != nil {
				return err
			}
			st.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, st)
		},
	}

	root.PersistentFlags().StringVar(&st.configPath, "config", model.DefaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&st.dbPath, "db", "", "database file (overrides the config)")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "mirror logs to stderr")
	root.PersistentFlags().BoolVar(&st.jsonOut, "json", false, "print JSON instead of text")

	root.AddGroup(
		&cobra.Group{ID: groupTasks, Title: "Task Commands:"},
		&cobra.Group{ID: groupGraph, Title: "Prerequisite Commands:"},
		&cobra.Group{ID: groupView, Title: "View Commands:"},
	)

	for _, cmd := range []*cobra.Command{
		newAddCommand(st),
		newEditCommand(st),
		newRemoveCommand(st),
		newDoneCommand(st),
		newUndoCommand(st),
		newSkipCommand(st),
		newImportCommand(st),
	} {
		cmd.GroupID = groupTasks
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newParentCommand(st),
		newUnparentCommand(st),
		newChildrenCommand(st),
	} {
		cmd.GroupID = groupGraph
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newCurrentCommand(st),
		newQueueCommand(st),
		newShowCommand(st),
		newSearchCommand(st),
		newStatsCommand(st),
		newWatchCommand(st),
		newTUICommand(st),
	} {
		cmd.GroupID = groupView
		root.AddCommand(cmd)
	}

	return root, st
}

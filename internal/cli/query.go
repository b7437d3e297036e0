package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
	"github.com/nhle/nowtask/internal/service"
)

func newCurrentCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the task to act on now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := st.env.Service.CurrentTask(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.jsonOut {
				return writeJSON(out, task)
			}
			if task == nil {
				_, err = fmt.Fprintln(out, "Nothing to do right now.")
				return err
			}
			_, err = fmt.Fprintln(out, taskLine(*task))
			return err
		},
	}
}

func newQueueCommand(st *state) *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List ready tasks in the order they become current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := st.env.Service
			list := svc.Queue
			if all {
				list = svc.Ranked
			}
			tasks, err := list(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(tasks) > limit {
				tasks = tasks[:limit]
			}
			return writeTasks(cmd.OutOrStdout(), st.jsonOut, tasks)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n tasks")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "rank every task, including done, gated and blocked ones")
	return cmd
}

func newShowCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := st.env.Service
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			detail, err := svc.Detail(ctx, id)
			if err != nil {
				return err
			}
			rules, err := svc.Recurrences(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.jsonOut {
				return writeJSON(out, struct {
					*model.TaskDetail
					Recurrences []model.TaskRecurrence `json:"recurrences"`
				}{detail, rules})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%s\n", detail.ID)
			fmt.Fprintf(w, "Name:\t%s\n", detail.Name)
			if detail.Note != "" {
				fmt.Fprintf(w, "Note:\t%s\n", detail.Note)
			}
			for _, row := range []struct{ label, value string }{
				{"Deadline", service.FormatWhen(detail.DeadlineDate, detail.DeadlineTime)},
				{"Scheduled", service.FormatWhen(detail.ScheduledDate, detail.ScheduledTime)},
				{"Start after", service.FormatWhen(detail.StartAfterDate, detail.StartAfterTime)},
			} {
				if row.value != "" {
					fmt.Fprintf(w, "%s:\t%s\n", row.label, row.value)
				}
			}
			if detail.Recurring {
				fmt.Fprintf(w, "Repeats:\t%s\n", recurrence.Describe(rules))
				if next, ok, err := svc.NextDue(ctx, id); err == nil && ok {
					fmt.Fprintf(w, "Next due:\t%s\n", next)
				}
			}
			if detail.CategoryName != nil {
				fmt.Fprintf(w, "Category:\t%s\n", *detail.CategoryName)
			}
			if detail.ParentID != nil {
				fmt.Fprintf(w, "Waits for:\t%s  %s\n", shortID(*detail.ParentID), *detail.ParentName)
			}
			if detail.DoneAt != nil {
				fmt.Fprintf(w, "Done at:\t%s\n", detail.DoneAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(w, "Created:\t%s\n", detail.CreatedAt.Format("2006-01-02 15:04"))
			return w.Flush()
		},
	}
}

func newChildrenCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "children <id>",
		Short: "List the tasks waiting directly on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveID(ctx, st.env.Service, args[0])
			if err != nil {
				return err
			}
			children, err := st.env.Service.Children(ctx, id)
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), st.jsonOut, children)
		},
	}
}

func newSearchCommand(st *state) *cobra.Command {
	var deadline, scheduled string

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search tasks by name and date",
		Long: `Search tasks whose name contains text. --deadline and --scheduled
match tasks on that date, including recurring tasks that fall due on it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria := model.TaskSearchCriteria{Name: strings.Join(args, " ")}
			var err error
			if deadline != "" {
				if criteria.DeadlineDate, _, err = service.ParseWhen(deadline); err != nil {
					return fmt.Errorf("--deadline: %w", err)
				}
			}
			if scheduled != "" {
				if criteria.ScheduledDate, _, err = service.ParseWhen(scheduled); err != nil {
					return fmt.Errorf("--scheduled: %w", err)
				}
			}

			items, err := st.env.Service.SearchItems(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.jsonOut {
				if items == nil {
					items = []model.TaskItem{}
				}
				return writeJSON(out, items)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, it := range items {
				var flags []string
				if it.Recurring {
					flags = append(flags, "recurring")
				}
				if it.DoneAt != nil {
					flags = append(flags, "done "+it.DoneAt.Format("2006-01-02"))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", shortID(it.ID), it.Name, strings.Join(flags, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline date YYYY-MM-DD")
	cmd.Flags().StringVar(&scheduled, "scheduled", "", "scheduled date YYYY-MM-DD")
	return cmd
}

func newStatsCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task and completion totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := st.env.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if st.jsonOut {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tasks:       %d\nCompletions: %d\n", stats.Tasks, stats.Completions)
			return err
		},
	}
}

func newWatchCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the current task every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env := st.env
			stopConfig := watchConfig(env)
			defer stopConfig()

			env.Watcher.Run()
			defer env.Watcher.Stop()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg := <-env.Watcher.Results():
					stamp := time.Now().Format("15:04")
					switch {
					case msg.Err != nil:
						fmt.Fprintf(out, "%s  unavailable: %v\n", stamp, msg.Err)
					case msg.Task == nil:
						fmt.Fprintf(out, "%s  nothing to do\n", stamp)
					default:
						fmt.Fprintf(out, "%s  %s\n", stamp, taskLine(*msg.Task))
					}
				}
			}
		},
	}
}

// watchConfig follows the config file, when there is one, and pushes
// schedule changes to the service and the watcher.
func watchConfig(env *Env) func() {
	if env.ConfigPath == "" {
		return func() {}
	}
	if _, err := os.Stat(env.ConfigPath); err != nil {
		return func() {}
	}

	done := make(chan struct{})
	err := model.WatchConfig(env.ConfigPath, func(cfg *model.AppConfig) {
		select {
		case <-done:
			return
		default:
		}
		env.Logger.Info("config reloaded", "path", env.ConfigPath)
		if err := env.Watcher.SetSchedule(cfg.Schedule.RefreshCron); err != nil {
			env.Logger.Warn("ignoring refresh schedule", "error", err)
		}
		env.Service.SetScheduleConfig(cfg.Schedule)
	}, func(err error) {
		env.Logger.Warn("config reload failed", "error", err)
	})
	if err != nil {
		env.Logger.Warn("not watching config", "error", err)
	}
	return func() { close(done) }
}

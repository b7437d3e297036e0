package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/nhle/nowtask/internal/importer"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
)

// taskFlags are the field flags shared by add and edit.
type taskFlags struct {
	Name       string
	Note       string
	Deadline   string
	StartAfter string
	Scheduled  string
	Category   string
	Parent     string
	Repeat     string
	Every      int
	From       string
	On         []string
	Week       int
	NoRepeat   bool
	NoParent   bool
}

func (f *taskFlags) register(cmd *cobra.Command, edit bool) {
	fl := cmd.Flags()
	if edit {
		fl.StringVar(&f.Name, "name", "", "new name")
		fl.BoolVar(&f.NoRepeat, "no-repeat", false, "remove every recurrence")
		fl.BoolVar(&f.NoParent, "no-parent", false, "detach from the parent")
	}
	fl.StringVar(&f.Note, "note", "", "free-form note")
	fl.StringVar(&f.Deadline, "deadline", "", `deadline as "YYYY-MM-DD", "HH:MM" or both`)
	fl.StringVar(&f.StartAfter, "start-after", "", "earliest date and/or time to start")
	fl.StringVar(&f.Scheduled, "scheduled", "", "appointment date and/or time")
	fl.StringVar(&f.Category, "category", "", "category name")
	fl.StringVar(&f.Parent, "parent", "", "id of the prerequisite task")
	fl.StringVar(&f.Repeat, "repeat", "", "recurrence: day, week, day_of_month, week_of_month or year")
	fl.IntVar(&f.Every, "every", 1, "recurrence step")
	fl.StringVar(&f.From, "from", "", "recurrence start date (default today)")
	fl.StringSliceVar(&f.On, "on", nil, "weekdays of a weekly recurrence, e.g. mon,thu")
	fl.IntVar(&f.Week, "week", 0, "week of the month of a week_of_month recurrence")
}

// apply copies every flag the user set onto fields.
func (f *taskFlags) apply(ctx context.Context, cmd *cobra.Command, svc *service.Service, fields *service.TaskFields) error {
	changed := cmd.Flags().Changed
	var err error

	if changed("name") {
		fields.Name = f.Name
	}
	if changed("note") {
		fields.Note = f.Note
	}
	if changed("deadline") {
		if fields.DeadlineDate, fields.DeadlineTime, err = service.ParseWhen(f.Deadline); err != nil {
			return fmt.Errorf("--deadline: %w", err)
		}
	}
	if changed("start-after") {
		if fields.StartAfterDate, fields.StartAfterTime, err = service.ParseWhen(f.StartAfter); err != nil {
			return fmt.Errorf("--start-after: %w", err)
		}
	}
	if changed("scheduled") {
		if fields.ScheduledDate, fields.ScheduledTime, err = service.ParseWhen(f.Scheduled); err != nil {
			return fmt.Errorf("--scheduled: %w", err)
		}
	}
	if changed("category") {
		fields.CategoryID = nil
		if name := strings.TrimSpace(f.Category); name != "" {
			cat, err := svc.CreateCategory(ctx, name)
			if err != nil {
				return err
			}
			fields.CategoryID = &cat.ID
		}
	}

	if f.NoRepeat {
		fields.Recurrences = nil
	}
	if changed("repeat") {
		in, err := f.recurrence(svc.Params().Today)
		if err != nil {
			return err
		}
		fields.Recurrences = []service.RecurrenceInput{in}
	}
	return nil
}

func (f *taskFlags) recurrence(today civil.Date) (service.RecurrenceInput, error) {
	kind, err := model.ParseRecurrenceType(f.Repeat)
	if err != nil {
		return service.RecurrenceInput{}, fmt.Errorf("--repeat: %w", err)
	}
	start := today
	if f.From != "" {
		if start, err = civil.ParseDate(f.From); err != nil {
			return service.RecurrenceInput{}, fmt.Errorf("--from: invalid date %q", f.From)
		}
	}
	weekdays, err := service.ParseWeekdays(f.On)
	if err != nil {
		return service.RecurrenceInput{}, fmt.Errorf("--on: %w", err)
	}
	return service.RecurrenceInput{Type: kind, Start: start, Step: f.Every, Weekdays: weekdays, Week: f.Week}, nil
}

func newAddCommand(st *state) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a task",
		Example: `  nowtask add Pay rent --deadline 2024-02-01
  nowtask add Stand-up --scheduled 09:30 --repeat week --on mon,tue,wed,thu,fri
  nowtask add Book flights --parent 3f2a9c1e`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := st.env.Service

			form := service.NewTaskForm{TaskFields: service.TaskFields{Name: strings.Join(args, " ")}}
			if err := flags.apply(ctx, cmd, svc, &form.TaskFields); err != nil {
				return err
			}
			if flags.Parent != "" {
				parentID, err := resolveID(ctx, svc, flags.Parent)
				if err != nil {
					return err
				}
				form.ParentID = &parentID
			}

			id, err := svc.Create(ctx, form)
			if err != nil {
				return err
			}
			if st.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"id": id})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", shortID(id))
			return err
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newEditCommand(st *state) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task; only the given flags are touched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := st.env.Service

			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			task, err := svc.GetTask(ctx, id)
			if err != nil {
				return err
			}
			rules, err := svc.Recurrences(ctx, id)
			if err != nil {
				return err
			}

			form := service.EditTaskForm{ID: id, TaskFields: service.FieldsOf(*task, rules)}
			if err := flags.apply(ctx, cmd, svc, &form.TaskFields); err != nil {
				return err
			}
			switch {
			case flags.NoParent:
				form.Parent = model.ParentChange{Action: model.ParentRemove}
			case flags.Parent != "":
				parentID, err := resolveID(ctx, svc, flags.Parent)
				if err != nil {
					return err
				}
				form.Parent = model.ParentChange{Action: model.ParentReplace, ParentID: parentID}
			}

			if err := svc.Update(ctx, form); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", shortID(id))
			return err
		},
	}
	flags.register(cmd, true)
	return cmd
}

// newIDCommand builds a command that applies op to one task id.
func newIDCommand(st *state, use, short, verb string, op func(*service.Service) func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := st.env.Service
			id, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if err := op(svc)(ctx, id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s task %s\n", verb, shortID(id))
			return err
		},
	}
}

func newRemoveCommand(st *state) *cobra.Command {
	cmd := newIDCommand(st, "rm", "Delete a task; its children move up to its parent", "Deleted",
		func(s *service.Service) func(context.Context, string) error { return s.Delete })
	cmd.Aliases = []string{"delete"}
	return cmd
}

func newDoneCommand(st *state) *cobra.Command {
	return newIDCommand(st, "done", "Mark a task done", "Completed",
		func(s *service.Service) func(context.Context, string) error { return s.MarkDone })
}

func newUndoCommand(st *state) *cobra.Command {
	return newIDCommand(st, "undo", "Remove a task's latest completion", "Reopened",
		func(s *service.Service) func(context.Context, string) error { return s.UnmarkDone })
}

func newSkipCommand(st *state) *cobra.Command {
	return newIDCommand(st, "skip", "Hide a task until the next day starts", "Skipped",
		func(s *service.Service) func(context.Context, string) error { return s.Skip })
}

func newParentCommand(st *state) *cobra.Command {
	var move bool

	cmd := &cobra.Command{
		Use:   "parent <child-id> <parent-id>",
		Short: "Make one task a prerequisite of another",
		Long: `Make <parent-id> a prerequisite of <child-id>. While the parent is
pending, it is shown instead of the child.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := st.env.Service
			childID, err := resolveID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			parentID, err := resolveID(ctx, svc, args[1])
			if err != nil {
				return err
			}

			if move {
				err = svc.MoveTo(ctx, childID, parentID)
			} else {
				err = svc.SetParent(ctx, childID, parentID)
			}
			if err != nil {
				if model.IsMultipleParentsError(err) {
					return fmt.Errorf("%w (use --move to replace it)", err)
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Task %s now waits for %s\n", shortID(childID), shortID(parentID))
			return err
		},
	}
	cmd.Flags().BoolVar(&move, "move", false, "replace the child's current parent")
	return cmd
}

func newUnparentCommand(st *state) *cobra.Command {
	return newIDCommand(st, "unparent", "Detach a task from its parent", "Detached",
		func(s *service.Service) func(context.Context, string) error { return s.RemoveParent })
}

func newImportCommand(st *state) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create tasks from a YAML file",
		Long: `Create tasks from a YAML file. Use "-" to read standard input.

  tasks:
    - key: taxes
      name: File taxes
      deadline: 2024-04-15
    - name: Collect receipts
      parent: taxes
      repeat: {every: 1, unit: week, start: 2024-01-01, on: [mon]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			drafts, err := importer.Parse(in)
			if err != nil {
				return err
			}
			created, err := importer.New(st.env.Service).Import(cmd.Context(), drafts, dryRun)

			out := cmd.OutOrStdout()
			for _, c := range created {
				if dryRun {
					fmt.Fprintf(out, "would create %s\n", c.Name)
					continue
				}
				fmt.Fprintf(out, "created %s  %s\n", shortID(c.ID), c.Name)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without creating anything")
	return cmd
}

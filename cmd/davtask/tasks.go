package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/davtask/davtask/internal/config"
	"github.com/davtask/davtask/internal/engine"
	"github.com/davtask/davtask/internal/task"
)

var addCalendar string

var addCmd = &cobra.Command{
	Use:   "add <summary>...",
	Short: "Add a task",
	Long: `Create a task on the given calendar (default: the local calendar).
While offline the create is queued in the journal and synced later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}
		href, err := resolveCalendar(cfg, addCalendar)
		if err != nil {
			return err
		}

		t := task.New(href, strings.Join(args, " "))

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := eng.Create(ctx, t); err != nil {
			return err
		}
		fmt.Printf("Added %q (%s)\n", t.Summary, t.UID)
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <uid>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editTask(cmd.Context(), args[0], func(t *task.Task) {
			t.Status = task.StatusCompleted
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <uid>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		t, err := findTask(ctx, cfg, eng, args[0])
		if err != nil {
			return err
		}
		if err := eng.Delete(ctx, t); err != nil {
			return err
		}
		fmt.Printf("Deleted %q\n", t.Summary)
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <uid> <calendar>",
	Short: "Move a task to another calendar",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}
		target, err := resolveCalendar(cfg, args[1])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		// The snapshot passed to Move must be the task as stored,
		// before anything rewrites its calendar href.
		snapshot, err := findTask(ctx, cfg, eng, args[0])
		if err != nil {
			return err
		}
		if err := eng.Move(ctx, snapshot, target); err != nil {
			return err
		}
		fmt.Printf("Queued move of %q to %s\n", snapshot.Summary, target)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addCalendar, "calendar", "c", "", "calendar name or href")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
}

// editTask loads, mutates, and queues an update for one task by uid.
func editTask(ctx context.Context, uid string, edit func(*task.Task)) error {
	eng, cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	t, err := findTask(ctx, cfg, eng, uid)
	if err != nil {
		return err
	}
	edit(&t)
	t.Touch()
	if err := eng.Update(ctx, t); err != nil {
		return err
	}
	fmt.Printf("Updated %q\n", t.Summary)
	return nil
}

// findTask searches every known calendar for a uid.
func findTask(ctx context.Context, cfg *config.Config, eng *engine.Engine, uid string) (task.Task, error) {
	hrefs := []string{task.LocalCalendarHref, task.RecoveryCalendarHref}
	for _, c := range cfg.Calendars {
		hrefs = append(hrefs, c.Href)
	}
	for _, href := range hrefs {
		tasks, err := eng.GetTasks(ctx, href)
		if err != nil {
			continue
		}
		if t, ok := task.Find(tasks, uid); ok {
			return t, nil
		}
	}
	return task.Task{}, fmt.Errorf("no task with uid %q", uid)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [calendar]",
	Short: "Show the effective task list for a calendar",
	Long: `List tasks for a calendar: the reconciled server view with pending
local edits layered on top. Works offline from the cached snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		href, err := resolveCalendar(cfg, name)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		tasks, err := eng.GetTasks(ctx, href)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}
		for _, t := range tasks {
			marker := " "
			if t.Status == "COMPLETED" {
				marker = "x"
			}
			pending := ""
			if t.ETag == "" {
				pending = " (not yet synced)"
			}
			due := ""
			if t.Due != nil {
				due = "  due " + t.Due.Local().Format("2006-01-02")
			}
			fmt.Printf("[%s] %s%s%s\n    %s\n", marker, t.Summary, due, pending, t.UID)
		}
		return nil
	},
}

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List calendars, including local and recovery",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := setup()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		entries, err := eng.Calendars(ctx)
		if err != nil {
			return err
		}
		for _, c := range entries {
			kind := "remote"
			if c.LocalOnly {
				kind = "local"
			}
			fmt.Printf("%-20s %-7s %s\n", c.Name, kind, c.Href)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(calendarsCmd)
}

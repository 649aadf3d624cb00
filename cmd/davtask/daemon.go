package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/davtask/davtask/internal/daemon"
)

var daemonLogFile string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Keep the journal drained in the background.

The daemon syncs on start, whenever another davtask process appends to
the journal, and on the configured interval (which also retries
transiently failed actions). Stop with SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := setup()
		if err != nil {
			return err
		}

		dcfg := daemon.DefaultConfig()
		dcfg.SyncInterval = cfg.SyncInterval

		logPath := daemonLogFile
		if logPath == "" {
			logPath = filepath.Join(cfg.DataDir, "daemon.log")
		}
		if logPath != "-" {
			dcfg.Logger = log.New(&lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}, "[daemon] ", log.LstdFlags)
		}

		d, err := daemon.New(eng, dcfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return d.Run(ctx)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "daemon log file, '-' for stderr (default <data-dir>/daemon.log)")
	rootCmd.AddCommand(daemonCmd)
}

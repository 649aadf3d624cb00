package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davtask/davtask/internal/caldav"
	"github.com/davtask/davtask/internal/config"
	"github.com/davtask/davtask/internal/engine"
	"github.com/davtask/davtask/internal/journal"
	"github.com/davtask/davtask/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "davtask",
	Short: "Offline-first CalDAV task client",
	Long: `davtask keeps a local task list usable while disconnected, queues
local edits durably, and reconciles them against a remote CalDAV
server without silently losing or duplicating data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/davtask/config.yaml)")
}

// setup builds the engine shared by all commands from configuration.
func setup() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	jnl := journal.New(store)

	var transport caldav.Transport
	if cfg.ServerURL != "" {
		client, err := caldav.NewClient(cfg.ServerURL, cfg.HomeSet, cfg.Username, cfg.Password)
		if err != nil {
			return nil, nil, err
		}
		transport = client
	} else {
		// No server configured: everything stays local, syncs retain.
		transport = caldav.Unconfigured{}
	}

	eng := engine.New(transport, store, jnl, cfg.LocalCalendars(), nil)
	return eng, cfg, nil
}

// resolveCalendar maps a user-supplied calendar name or href to its
// href, defaulting to the synthetic local calendar.
func resolveCalendar(cfg *config.Config, nameOrHref string) (string, error) {
	if nameOrHref == "" {
		return "local://local", nil
	}
	for _, c := range cfg.Calendars {
		if c.Name == nameOrHref || c.Href == nameOrHref {
			return c.Href, nil
		}
	}
	if nameOrHref == "local" || nameOrHref == "recovery" {
		return "local://" + nameOrHref, nil
	}
	// Allow raw hrefs for calendars not in the config file.
	if len(nameOrHref) > 0 && nameOrHref[0] == '/' {
		return nameOrHref, nil
	}
	return "", fmt.Errorf("unknown calendar %q", nameOrHref)
}

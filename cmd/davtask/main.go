// Command davtask is an offline-first CalDAV task client: local edits
// are queued durably in a journal and reconciled against the server
// without losing or duplicating data on conflicts.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/visiontext/internal/extract"
)

var (
	historyJSON  bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past extractions kept by the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HistoryTimeout)
		defer cancel()

		entries, err := extract.NewClient(cfg.BaseURL, cfg.RequestInterval).History(ctx)
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[:historyLimit]
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No past extractions.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(out, formatHistoryLine(e))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most N entries (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func formatHistoryLine(e extract.HistoryEntry) string {
	ts := "unknown time    "
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.Local().Format("2006-01-02 15:04")
	}
	name := e.EventDetails.EventName
	if name == "" || name == extract.NotAvailable {
		name = "Untitled event"
	}
	line := fmt.Sprintf("%s  %s", ts, name)
	if loc := e.EventDetails.Location; loc != "" && loc != extract.NotAvailable {
		line += "  @ " + loc
	}
	return line
}

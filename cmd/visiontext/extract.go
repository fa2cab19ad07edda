package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/present"
	"github.com/abelbrown/visiontext/internal/ui"
	"github.com/abelbrown/visiontext/internal/workflow"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract text from one image without the TUI",
	Long: `Upload one image and print the event card and the recognized text.

Exits with status 1 when the service cannot be reached, times out or
reports that extraction failed.

Examples:
  visiontext extract poster.png
  visiontext extract --json ~/Downloads/flyer.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		img, err := ui.LoadImage(args[0], imagePolicy(cfg))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ExtractTimeout)
		defer cancel()

		client := extract.NewClient(cfg.BaseURL, cfg.RequestInterval)
		res, err := client.Extract(ctx, img)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return errors.New(workflow.MsgTimeout)
		case errors.Is(err, context.Canceled):
			return errors.New(workflow.MsgCancelled)
		case err != nil:
			return fmt.Errorf("%s: %w", workflow.MsgConnection, err)
		case !res.Success:
			if res.Error != "" {
				return errors.New(res.Error)
			}
			return errors.New(workflow.MsgExtractFailed)
		}

		out := cmd.OutOrStdout()
		if extractJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printCard(out, present.Normalize(res.Structured))
		printFragments(out, res.Data)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the raw service response as JSON")
	rootCmd.AddCommand(extractCmd)
}

func printCard(w io.Writer, c present.Card) {
	fmt.Fprintf(w, "%s  [%s]\n\n", c.Title, c.AtmosphereLabel())
	fmt.Fprintf(w, "  %-10s %s\n", "Date", c.Date)
	fmt.Fprintf(w, "  %-10s %s\n", "Time", c.Time)
	fmt.Fprintf(w, "  %-10s %s\n", "Hosted by", c.Host)
	fmt.Fprintf(w, "  %-10s %s\n", "Location", c.Location)
	if len(c.Lineup) > 0 {
		fmt.Fprintln(w, "\n  Lineup / DJs")
		for _, name := range c.Lineup {
			fmt.Fprintf(w, "    - %s\n", name)
		}
	}
	fmt.Fprintf(w, "\n  %s\n", c.Description)
}

func printFragments(w io.Writer, frags []extract.Fragment) {
	if len(frags) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRaw text")
	for _, f := range frags {
		fmt.Fprintf(w, "  %3d%%  %s\n", present.ConfidencePercent(f.Confidence), strings.TrimSpace(f.Text))
	}
}

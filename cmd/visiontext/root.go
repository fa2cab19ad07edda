package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/ui"
	"github.com/abelbrown/visiontext/internal/workflow"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "visiontext",
	Short: "Extract event details from poster images",
	Long: `VisionText uploads an image to a text-extraction service and shows the
recognized text and the event it describes (title, date, time, host,
location, lineup) as a card in the terminal.

Keys:
  o        open an image          e        extract text
  esc      cancel extraction      c        clear
  j/k      move in history        enter    show history entry
  r        refresh history        y        copy text to clipboard
  D        debug overlay          q        quit`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./visiontext.yaml or ~/.visiontext/config.yaml)",
	)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ring := otel.NewRingBuffer(256)
	logger.SetRingBuffer(ring)
	logger.Info(otel.KindStartup, "main", cfg.BaseURL)

	client := extract.NewClient(cfg.BaseURL, cfg.RequestInterval)
	wf := workflow.New(client, workflow.Options{
		ExtractTimeout: cfg.ExtractTimeout,
		HistoryTimeout: cfg.HistoryTimeout,
		Logger:         logger,
	})

	app := ui.NewApp(ui.AppConfig{
		Controller: wf,
		LoadImage:  ui.LoadImageCmd(imagePolicy(cfg)),
		Ring:       ring,
		Logger:     logger,
		BaseURL:    client.BaseURL(),
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = program.Run()

	logger.Info(otel.KindShutdown, "main", "")
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error(otel.KindError, "main", err)
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

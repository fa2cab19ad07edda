package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/visiontext/internal/fixture"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/store"
)

var (
	fixtureAddr        string
	fixtureDB          string
	fixtureTranscripts string
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Run a local stand-in for the extraction service",
	Long: `Serve the extraction API locally.

Text is not recognized from pixels. For an upload named poster.png the
fixture reads <transcripts>/poster.txt, one fragment per line, optionally
followed by a tab and a confidence between 0 and 1. The structured event
fields are derived from that text and every extraction is kept in SQLite
for GET /events.

Endpoints:
  GET  /         liveness message
  POST /ocr      multipart upload, field "file"
  GET  /events   past extractions, newest first
  GET  /metrics  Prometheus metrics

Examples:
  visiontext fixture
  visiontext fixture --addr 127.0.0.1:9000 --transcripts ./testdata`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Fixture.Addr = fixtureAddr
		}
		if cmd.Flags().Changed("db") {
			cfg.Fixture.DBPath = fixtureDB
		}
		if cmd.Flags().Changed("transcripts") {
			cfg.Fixture.TranscriptsDir = fixtureTranscripts
		}

		logger, closeLog, err := openEventLog(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		if err := os.MkdirAll(filepath.Dir(cfg.Fixture.DBPath), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
		st, err := store.Open(cfg.Fixture.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		ln, err := net.Listen("tcp", cfg.Fixture.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Fixture.Addr, err)
		}

		srv := fixture.New(fixture.Options{
			Recognizer:    fixture.TranscriptRecognizer{Dir: cfg.Fixture.TranscriptsDir},
			Store:         st,
			Logger:        logger,
			MaxImageBytes: cfg.MaxImageBytes,
		})

		logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "fixture", Msg: ln.Addr().String()})
		fmt.Fprintf(cmd.OutOrStdout(), "fixture listening on http://%s (transcripts: %s, db: %s)\n",
			ln.Addr(), cfg.Fixture.TranscriptsDir, cfg.Fixture.DBPath)

		err = srv.Serve(cmd.Context(), ln)
		logger.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "fixture"})
		return err
	},
}

func init() {
	fixtureCmd.Flags().StringVar(&fixtureAddr, "addr", "", "listen address (default from config: 127.0.0.1:8000)")
	fixtureCmd.Flags().StringVar(&fixtureDB, "db", "", "SQLite database path (default: <data_dir>/fixture.db)")
	fixtureCmd.Flags().StringVar(&fixtureTranscripts, "transcripts", "", "transcript directory (default: ./transcripts)")
	rootCmd.AddCommand(fixtureCmd)
}

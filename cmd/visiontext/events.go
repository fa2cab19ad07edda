package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// eventRecord mirrors otel.Event for JSON decoding.
// Decoding from JSONL keeps the viewer usable across schema changes.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	Attempt   string         `json:"attempt"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Bytes     int            `json:"bytes"`
	Status    int            `json:"status"`
	File      string         `json:"file"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// eventFilter selects events by kind prefix, minimum level, component and
// attempt id. Empty fields match everything.
type eventFilter struct {
	kind    string
	level   string
	comp    string
	attempt string
}

var (
	eventsTail   int
	eventsFollow bool
	eventsJSON   bool
	eventsFilter eventFilter
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "View the JSONL diagnostic event log",
	Long: `Print recent events from <data_dir>/visiontext.events.jsonl.

Examples:
  visiontext events --tail 20
  visiontext events --kind extract --level warn
  visiontext events --attempt 3f2a... --json
  visiontext events -f`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logPath := cfg.EventLogPath()
		f, err := os.Open(logPath)
		if err != nil {
			return fmt.Errorf("event log not found at %s (run visiontext first to generate events): %w", logPath, err)
		}
		defer f.Close()

		out := cmd.OutOrStdout()
		lines, err := readTailLines(f, eventsTail, eventsFilter.match)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(out, formatEvent(l.ev, l.raw, eventsJSON))
		}
		if !eventsFollow {
			return nil
		}

		// Follow mode: poll for appended lines until interrupted.
		ctx := cmd.Context()
		reader := bufio.NewReader(f)
		for {
			line, err := reader.ReadBytes('\n')
			if err == io.EOF {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(100 * time.Millisecond):
				}
				continue
			}
			if err != nil {
				return err
			}
			line = trimLine(line)
			if len(line) == 0 {
				continue
			}
			var ev eventRecord
			if json.Unmarshal(line, &ev) != nil {
				continue
			}
			if eventsFilter.match(ev) {
				fmt.Fprintln(out, formatEvent(ev, line, eventsJSON))
			}
		}
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsTail, "tail", 50, "number of recent matching lines to show")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "keep printing new events (like tail -f)")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "print raw JSON lines")
	eventsCmd.Flags().StringVar(&eventsFilter.kind, "kind", "", "event kind prefix (e.g. 'extract')")
	eventsCmd.Flags().StringVar(&eventsFilter.level, "level", "", "minimum level: debug, info, warn, error")
	eventsCmd.Flags().StringVar(&eventsFilter.comp, "comp", "", "component name")
	eventsCmd.Flags().StringVar(&eventsFilter.attempt, "attempt", "", "extraction attempt id")
	rootCmd.AddCommand(eventsCmd)
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.attempt != "" && ev.Attempt != f.attempt {
		return false
	}
	return true
}

func formatEvent(ev eventRecord, raw []byte, rawJSON bool) string {
	if rawJSON {
		return string(raw)
	}
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-8s] %-18s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}
	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.File != "" {
		parts = append(parts, "file="+ev.File)
	}
	if ev.Bytes > 0 {
		parts = append(parts, fmt.Sprintf("bytes=%d", ev.Bytes))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Attempt != "" {
		parts = append(parts, "att="+ev.Attempt)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r accepted by match.
// Lines that are not valid JSON are skipped.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) ([]parsedLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n > 0 {
		ring = make([]parsedLine, 0, n)
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		if n <= 0 {
			continue
		}
		// scanner reuses its buffer
		rawCopy := append([]byte(nil), raw...)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring, scanner.Err()
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

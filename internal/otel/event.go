// Package otel provides structured observability for VisionText.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Extraction lifecycle
	KindExtractStart    EventKind = "extract.start"
	KindExtractComplete EventKind = "extract.complete"
	KindExtractFailed   EventKind = "extract.failed" // service answered success=false
	KindExtractError    EventKind = "extract.error"  // transport or decode failure
	KindExtractTimeout  EventKind = "extract.timeout"
	KindExtractCancel   EventKind = "extract.cancel"

	// History refresh
	KindHistoryStart    EventKind = "history.start"
	KindHistoryComplete EventKind = "history.complete"
	KindHistoryError    EventKind = "history.error"

	// UI events
	KindKeyPress      EventKind = "ui.key"
	KindClipboardCopy EventKind = "clipboard.copy"

	// Fixture backend
	KindFixtureOCR    EventKind = "fixture.ocr"
	KindFixtureEvents EventKind = "fixture.events"
	KindFixtureError  EventKind = "fixture.error"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "workflow", "ui", "extract", "fixture", "main"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire app run
	Attempt   string         `json:"attempt,omitempty"`    // extraction attempt correlation ID
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Bytes     int            `json:"bytes,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status
	File      string         `json:"file,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// Package workflow holds the client-side state machine for one extraction
// session: image selection, a single in-flight extraction, its outcome and
// the cached history list.
//
// The Controller is driven from a Bubble Tea Update loop. Blocking work is
// returned as tea.Cmd closures whose results come back as ExtractFinished
// and HistoryLoaded messages, so the Controller itself is never touched by
// more than one goroutine.
package workflow

import (
	"context"
	"time"

	"github.com/abelbrown/visiontext/internal/extract"
)

// Phase is the current state of the workflow. Exactly one of Idle,
// ImageSelected, Extracting, Result or Error.
type Phase interface {
	phase()
}

// Idle: nothing selected.
type Idle struct{}

// ImageSelected: an image is ready to be submitted.
type ImageSelected struct {
	Image extract.Upload
}

// Extracting: one request is in flight for Image.
type Extracting struct {
	Image   extract.Upload
	Attempt string
	Started time.Time

	cancel context.CancelFunc
}

// Result: an outcome is displayed. Image is retained for a retry and is
// nil when nothing was selected at the time.
type Result struct {
	Image       *extract.Upload
	Outcome     *extract.Result
	FromHistory bool
}

// Error: the last extraction failed with Message.
type Error struct {
	Image   *extract.Upload
	Message string
}

func (Idle) phase()          {}
func (ImageSelected) phase() {}
func (Extracting) phase()    {}
func (Result) phase()        {}
func (Error) phase()         {}

// Messages shown for failures that carry no server text.
const (
	MsgExtractFailed = "Failed to extract text"
	MsgConnection    = "Connection error. Is the backend running?"
	MsgTimeout       = "Extraction timed out. Try again."
	MsgCancelled     = "Extraction cancelled."
)

// ExtractFinished carries the outcome of one extraction attempt.
type ExtractFinished struct {
	Attempt string
	Result  *extract.Result
	Err     error
	Dur     time.Duration
}

// HistoryLoaded carries the outcome of one history fetch.
type HistoryLoaded struct {
	Seq     uint64
	Entries []extract.HistoryEntry
	Err     error
}

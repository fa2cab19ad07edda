package workflow

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/otel"
)

const comp = "workflow"

// Backend performs the remote calls. *extract.Client satisfies it.
type Backend interface {
	Extract(ctx context.Context, img extract.Upload) (*extract.Result, error)
	History(ctx context.Context) ([]extract.HistoryEntry, error)
}

// Options tunes a Controller. Zero durations fall back to the defaults.
type Options struct {
	ExtractTimeout time.Duration
	HistoryTimeout time.Duration
	Logger         *otel.Logger
}

// Controller owns the workflow phase and the history cache.
// It is not safe for concurrent use; call it from a single Update loop.
type Controller struct {
	backend Backend
	opts    Options
	log     *otel.Logger

	phase   Phase
	history []extract.HistoryEntry

	historySeq     uint64 // last fetch issued
	historyApplied uint64 // last fetch whose result was applied

	newAttempt func() string
	now        func() time.Time
}

// New creates a Controller in the Idle phase with an empty history.
func New(backend Backend, opts Options) *Controller {
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 60 * time.Second
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = 10 * time.Second
	}
	return &Controller{
		backend:    backend,
		opts:       opts,
		log:        opts.Logger,
		phase:      Idle{},
		history:    []extract.HistoryEntry{},
		newAttempt: uuid.NewString,
		now:        time.Now,
	}
}

// Init returns the startup history fetch.
func (c *Controller) Init() tea.Cmd {
	return c.RefreshHistory()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// History returns the cached history, newest first as the service sent it.
func (c *Controller) History() []extract.HistoryEntry {
	return c.history
}

// Busy reports whether an extraction is in flight.
func (c *Controller) Busy() bool {
	_, ok := c.phase.(Extracting)
	return ok
}

// Image returns the selected or retained image, if any.
func (c *Controller) Image() *extract.Upload {
	switch p := c.phase.(type) {
	case ImageSelected:
		img := p.Image
		return &img
	case Extracting:
		img := p.Image
		return &img
	case Result:
		return p.Image
	case Error:
		return p.Image
	}
	return nil
}

// Displayed returns the outcome being shown, or nil outside Result.
func (c *Controller) Displayed() *extract.Result {
	if p, ok := c.phase.(Result); ok {
		return p.Outcome
	}
	return nil
}

// FullText returns the text of the displayed outcome for clipboard export.
func (c *Controller) FullText() string {
	if r := c.Displayed(); r != nil {
		return r.FullText
	}
	return ""
}

// SelectImage makes img the current image and clears any outcome.
// Ignored while extracting; returns whether the phase changed.
func (c *Controller) SelectImage(img extract.Upload) bool {
	if c.Busy() {
		return false
	}
	c.phase = ImageSelected{Image: img}
	return true
}

// RequestExtract starts one extraction of the selected or retained image.
// Returns nil when there is no image or one is already in flight.
func (c *Controller) RequestExtract() tea.Cmd {
	if c.Busy() {
		return nil
	}
	img := c.Image()
	if img == nil {
		return nil
	}

	attempt := c.newAttempt()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ExtractTimeout)
	started := c.now()
	c.phase = Extracting{Image: *img, Attempt: attempt, Started: started, cancel: cancel}

	c.log.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindExtractStart,
		Comp:    comp,
		Attempt: attempt,
		File:    img.Name,
		Bytes:   img.Size(),
	})

	backend := c.backend
	upload := *img
	return func() tea.Msg {
		defer cancel()
		res, err := backend.Extract(ctx, upload)
		return ExtractFinished{Attempt: attempt, Result: res, Err: err, Dur: time.Since(started)}
	}
}

// CancelExtract aborts the in-flight extraction. The late ExtractFinished
// is dropped as stale. Returns false when nothing was in flight.
func (c *Controller) CancelExtract() bool {
	p, ok := c.phase.(Extracting)
	if !ok {
		return false
	}
	p.cancel()
	img := p.Image
	c.phase = Error{Image: &img, Message: MsgCancelled}
	c.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindExtractCancel, Comp: comp, Attempt: p.Attempt})
	return true
}

// Clear returns to Idle. No-op while idle or extracting.
func (c *Controller) Clear() bool {
	switch c.phase.(type) {
	case ImageSelected, Result, Error:
		c.phase = Idle{}
		return true
	}
	return false
}

// SelectHistory displays history entry i. An in-flight extraction is
// cancelled so it cannot replace the chosen entry. Out of range is a no-op.
func (c *Controller) SelectHistory(i int) bool {
	if i < 0 || i >= len(c.history) {
		return false
	}
	img := c.Image()
	if p, ok := c.phase.(Extracting); ok {
		p.cancel()
		c.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindExtractCancel, Comp: comp, Attempt: p.Attempt, Msg: "history selected"})
	}

	entry := c.history[i]
	fields := entry.EventDetails
	fields.Highlights = append([]string(nil), entry.EventDetails.Highlights...)
	c.phase = Result{
		Image: img,
		Outcome: &extract.Result{
			Success:    true,
			FullText:   entry.FullText,
			Structured: &fields,
		},
		FromHistory: true,
	}
	return true
}

// RefreshHistory returns a history fetch. Its result only ever replaces
// the history list.
func (c *Controller) RefreshHistory() tea.Cmd {
	c.historySeq++
	seq := c.historySeq
	backend := c.backend
	timeout := c.opts.HistoryTimeout

	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindHistoryStart, Comp: comp})

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		entries, err := backend.History(ctx)
		return HistoryLoaded{Seq: seq, Entries: entries, Err: err}
	}
}

// Update applies a workflow message. Other messages are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ExtractFinished:
		return c.finishExtract(msg)
	case HistoryLoaded:
		c.applyHistory(msg)
	}
	return nil
}

func (c *Controller) finishExtract(msg ExtractFinished) tea.Cmd {
	p, ok := c.phase.(Extracting)
	if !ok || p.Attempt != msg.Attempt {
		return nil
	}
	p.cancel()
	img := p.Image

	ev := otel.Event{Comp: comp, Attempt: msg.Attempt, Dur: msg.Dur, File: img.Name}

	switch {
	case msg.Err == nil && msg.Result != nil && msg.Result.Success:
		c.phase = Result{Image: &img, Outcome: msg.Result}
		ev.Level, ev.Kind, ev.Count = otel.LevelInfo, otel.KindExtractComplete, len(msg.Result.Data)
		c.log.Emit(ev)
		return c.RefreshHistory()

	case msg.Err == nil:
		text := MsgExtractFailed
		if msg.Result != nil && msg.Result.Error != "" {
			text = msg.Result.Error
		}
		c.phase = Error{Image: &img, Message: text}
		ev.Level, ev.Kind, ev.Msg = otel.LevelWarn, otel.KindExtractFailed, text

	case errors.Is(msg.Err, context.DeadlineExceeded):
		c.phase = Error{Image: &img, Message: MsgTimeout}
		ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindExtractTimeout, msg.Err.Error()

	case errors.Is(msg.Err, context.Canceled):
		c.phase = Error{Image: &img, Message: MsgCancelled}
		ev.Level, ev.Kind, ev.Err = otel.LevelInfo, otel.KindExtractCancel, msg.Err.Error()

	default:
		c.phase = Error{Image: &img, Message: MsgConnection}
		ev.Level, ev.Kind, ev.Err = otel.LevelError, otel.KindExtractError, msg.Err.Error()
	}
	c.log.Emit(ev)
	return nil
}

func (c *Controller) applyHistory(msg HistoryLoaded) {
	if msg.Err != nil {
		c.log.Warn(otel.KindHistoryError, comp, msg.Err.Error())
		return
	}
	if msg.Seq != 0 && msg.Seq < c.historyApplied {
		return
	}
	c.historyApplied = msg.Seq
	entries := msg.Entries
	if entries == nil {
		entries = []extract.HistoryEntry{}
	}
	c.history = entries
	c.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindHistoryComplete, Comp: comp, Count: len(entries)})
}

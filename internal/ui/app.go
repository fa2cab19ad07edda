package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/workflow"
)

const comp = "ui"

// Notices shown in the bar above the status bar.
const (
	NoticeCopied       = "Copied to clipboard!"
	NoticeNothingCopy  = "Nothing to copy yet"
	NoticeNoImage      = "Select an image first (o)"
	NoticeBusy         = "Extraction in progress"
	NoticeCancelHint   = "Extracting... (esc to cancel)"
	noticeCopyFailedAt = "Copy failed: "
)

// AppConfig wires the App to the workflow and its side effects.
// LoadImage and CopyText return commands so the App itself never touches
// the filesystem or the clipboard.
type AppConfig struct {
	Controller *workflow.Controller
	LoadImage  func(path string) tea.Cmd
	CopyText   func(text string) tea.Cmd
	Ring       *otel.RingBuffer
	Logger     *otel.Logger
	BaseURL    string
}

// App is the root Bubble Tea model.
// App does NOT perform I/O. Extraction and history run as workflow commands.
type App struct {
	wf        *workflow.Controller
	loadImage func(path string) tea.Cmd
	copyText  func(text string) tea.Cmd
	ring      *otel.RingBuffer
	log       *otel.Logger
	baseURL   string

	input     textinput.Model
	inputOpen bool
	spin      spinner.Model

	cursor    int
	notice    string
	noticeErr bool
	showDebug bool

	width  int
	height int
	ready  bool
}

// NewApp creates an App. A nil CopyText falls back to the system clipboard.
func NewApp(cfg AppConfig) App {
	ti := textinput.New()
	ti.Prompt = "Image path: "
	ti.Placeholder = "~/Pictures/poster.png"
	ti.CharLimit = 4096

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	copyText := cfg.CopyText
	if copyText == nil {
		copyText = ClipboardCmd
	}

	return App{
		wf:        cfg.Controller,
		loadImage: cfg.LoadImage,
		copyText:  copyText,
		ring:      cfg.Ring,
		log:       cfg.Logger,
		baseURL:   cfg.BaseURL,
		input:     ti,
		spin:      s,
	}
}

// ClipboardCmd copies text to the system clipboard.
func ClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		return ClipboardCopied{Chars: len([]rune(text)), Err: err}
	}
}

// Init starts the initial history fetch.
func (a App) Init() tea.Cmd {
	if a.wf == nil {
		return nil
	}
	return a.wf.Init()
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(msg.Width-len(a.input.Prompt)-4, 10)
		a.ready = true
		return a, nil

	case ImageLoaded:
		if msg.Err != nil {
			a.setError(msg.Err.Error())
			return a, nil
		}
		if !a.wf.SelectImage(msg.Upload) {
			a.setNotice(NoticeBusy)
		}
		return a, nil

	case ClipboardCopied:
		if msg.Err != nil {
			a.setError(noticeCopyFailedAt + msg.Err.Error())
			a.log.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindClipboardCopy, Comp: comp, Err: msg.Err.Error()})
			return a, nil
		}
		a.setNotice(NoticeCopied)
		a.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindClipboardCopy, Comp: comp, Count: msg.Chars})
		return a, nil

	case workflow.ExtractFinished:
		return a, a.wf.Update(msg)

	case workflow.HistoryLoaded:
		cmd := a.wf.Update(msg)
		a.clampCursor()
		return a, cmd

	case spinner.TickMsg:
		if a.wf == nil || !a.wf.Busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	if a.inputOpen {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	a.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: comp, Msg: key})

	// Notices last until the next key.
	a.notice, a.noticeErr = "", false

	if key == "ctrl+c" {
		a.wf.CancelExtract()
		return a, tea.Quit
	}

	if a.inputOpen {
		return a.handleInputKey(msg)
	}

	if a.showDebug {
		switch key {
		case "D", "esc":
			a.showDebug = false
		case "q":
			a.wf.CancelExtract()
			return a, tea.Quit
		}
		return a, nil
	}

	switch key {
	case "q":
		a.wf.CancelExtract()
		return a, tea.Quit

	case "D":
		a.showDebug = true
		return a, nil

	case "o":
		if a.wf.Busy() {
			a.setNotice(NoticeBusy)
			return a, nil
		}
		a.inputOpen = true
		a.input.SetValue("")
		return a, a.input.Focus()

	case "e", "x":
		if a.wf.Busy() {
			a.setNotice(NoticeCancelHint)
			return a, nil
		}
		if a.wf.Image() == nil {
			a.setNotice(NoticeNoImage)
			return a, nil
		}
		cmd := a.wf.RequestExtract()
		if cmd == nil {
			return a, nil
		}
		return a, tea.Batch(cmd, a.spin.Tick)

	case "esc":
		a.wf.CancelExtract()
		return a, nil

	case "c":
		a.wf.Clear()
		return a, nil

	case "j", "down":
		if a.cursor < len(a.wf.History())-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if n := len(a.wf.History()); n > 0 {
			a.cursor = n - 1
		}
		return a, nil

	case "enter":
		a.wf.SelectHistory(a.cursor)
		return a, nil

	case "r":
		return a, a.wf.RefreshHistory()

	case "y":
		text := a.wf.FullText()
		if text == "" {
			a.setNotice(NoticeNothingCopy)
			return a, nil
		}
		return a, a.copyText(text)
	}

	return a, nil
}

func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.closeInput()
		return a, nil
	case tea.KeyEnter:
		path := a.input.Value()
		a.closeInput()
		if path == "" || a.loadImage == nil {
			return a, nil
		}
		return a, a.loadImage(path)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) closeInput() {
	a.inputOpen = false
	a.input.Blur()
	a.input.SetValue("")
}

func (a *App) setNotice(s string) {
	a.notice, a.noticeErr = s, false
}

func (a *App) setError(s string) {
	a.notice, a.noticeErr = s, true
}

func (a *App) clampCursor() {
	n := len(a.wf.History())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// Cursor returns the history cursor (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Notice returns the transient notice text (for testing).
func (a App) Notice() string {
	return a.notice
}

// InputOpen reports whether the path prompt is showing (for testing).
func (a App) InputOpen() bool {
	return a.inputOpen
}

// DebugVisible reports whether the debug overlay is showing (for testing).
func (a App) DebugVisible() bool {
	return a.showDebug
}

// Controller returns the workflow controller (for testing).
func (a App) Controller() *workflow.Controller {
	return a.wf
}

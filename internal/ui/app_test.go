package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/visiontext/internal/config"
	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/workflow"
)

type fakeBackend struct {
	extract func(ctx context.Context, img extract.Upload) (*extract.Result, error)
	history func(ctx context.Context) ([]extract.HistoryEntry, error)

	extractCalls atomic.Int32
}

func (f *fakeBackend) Extract(ctx context.Context, img extract.Upload) (*extract.Result, error) {
	f.extractCalls.Add(1)
	if f.extract == nil {
		return &extract.Result{Success: true}, nil
	}
	return f.extract(ctx, img)
}

func (f *fakeBackend) History(ctx context.Context) ([]extract.HistoryEntry, error) {
	if f.history == nil {
		return []extract.HistoryEntry{}, nil
	}
	return f.history(ctx)
}

// mockCmd records the side-effect commands the App asks for.
type mockCmd struct {
	loadedPath string
	copiedText string
	copyErr    error
}

func (m *mockCmd) loadImage(path string) tea.Cmd {
	m.loadedPath = path
	return func() tea.Msg {
		return ImageLoaded{Path: path, Upload: extract.Upload{Name: filepath.Base(path), Data: []byte("img")}}
	}
}

func (m *mockCmd) copyText(text string) tea.Cmd {
	m.copiedText = text
	return func() tea.Msg {
		return ClipboardCopied{Chars: len(text), Err: m.copyErr}
	}
}

func newTestApp(b workflow.Backend, mock *mockCmd) App {
	if mock == nil {
		mock = &mockCmd{}
	}
	return NewApp(AppConfig{
		Controller: workflow.New(b, workflow.Options{ExtractTimeout: 5 * time.Second, Logger: otel.NewNullLogger()}),
		LoadImage:  mock.loadImage,
		CopyText:   mock.copyText,
		Logger:     otel.NewNullLogger(),
		BaseURL:    "http://localhost:8000",
	})
}

// run executes cmd and feeds every resulting message back into the App,
// following batches. Spinner ticks are dropped so the loop terminates.
func run(t *testing.T, app App, cmd tea.Cmd) App {
	t.Helper()
	if cmd == nil {
		return app
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			app = run(t, app, c)
		}
		return app
	case spinner.TickMsg, nil:
		return app
	default:
		model, next := app.Update(msg)
		return run(t, model.(App), next)
	}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, app App, msg tea.KeyMsg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	return model.(App), cmd
}

func historyOf(names ...string) []extract.HistoryEntry {
	out := make([]extract.HistoryEntry, len(names))
	for i, n := range names {
		out[i] = extract.HistoryEntry{
			ID:           n,
			EventDetails: extract.Fields{EventName: n, Location: "Hall " + n},
			FullText:     n + " full text",
		}
	}
	return out
}

func selectImage(t *testing.T, app App) App {
	t.Helper()
	app, _ = press(t, app, key('o'))
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/tmp/poster.png")})
	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	return run(t, app, cmd)
}

func TestAppInitLoadsHistory(t *testing.T) {
	b := &fakeBackend{history: func(context.Context) ([]extract.HistoryEntry, error) {
		return historyOf("A", "B"), nil
	}}
	app := newTestApp(b, nil)

	cmd := app.Init()
	if cmd == nil {
		t.Fatal("Init should return a command")
	}
	app = run(t, app, cmd)

	if got := len(app.Controller().History()); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestAppInitNilController(t *testing.T) {
	app := NewApp(AppConfig{})
	if cmd := app.Init(); cmd != nil {
		t.Error("Init should return nil without a controller")
	}
}

func TestAppOpenImage(t *testing.T) {
	mock := &mockCmd{}
	app := newTestApp(&fakeBackend{}, mock)

	app, cmd := press(t, app, key('o'))
	if !app.InputOpen() {
		t.Fatal("o should open the path prompt")
	}
	if cmd == nil {
		t.Error("o should return the focus command")
	}

	// Keys go to the prompt while it is open.
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("~/flyer.jpg")})
	if _, ok := app.Controller().Phase().(workflow.Idle); !ok {
		t.Fatalf("typing should not change the phase, got %T", app.Controller().Phase())
	}

	app, cmd = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.InputOpen() {
		t.Error("enter should close the path prompt")
	}
	if mock.loadedPath != "~/flyer.jpg" {
		t.Errorf("loadImage path = %q, want %q", mock.loadedPath, "~/flyer.jpg")
	}

	app = run(t, app, cmd)
	p, ok := app.Controller().Phase().(workflow.ImageSelected)
	if !ok {
		t.Fatalf("phase = %T, want ImageSelected", app.Controller().Phase())
	}
	if p.Image.Name != "flyer.jpg" {
		t.Errorf("image name = %q, want flyer.jpg", p.Image.Name)
	}
}

func TestAppOpenImageEscape(t *testing.T) {
	mock := &mockCmd{}
	app := newTestApp(&fakeBackend{}, mock)

	app, _ = press(t, app, key('o'))
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x.png")})
	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEsc})

	if app.InputOpen() {
		t.Error("esc should close the path prompt")
	}
	if cmd != nil || mock.loadedPath != "" {
		t.Error("esc should not load anything")
	}
}

func TestAppImageLoadError(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)

	model, _ := app.Update(ImageLoaded{Path: "notes.txt", Err: ErrUnsupportedImage})
	app = model.(App)

	if !strings.Contains(app.Notice(), "unsupported image type") {
		t.Errorf("notice = %q, want load error", app.Notice())
	}
	if _, ok := app.Controller().Phase().(workflow.Idle); !ok {
		t.Errorf("a failed load should not change the phase, got %T", app.Controller().Phase())
	}

	app, _ = press(t, app, key('j'))
	if app.Notice() != "" {
		t.Errorf("notice should clear on the next key, got %q", app.Notice())
	}
}

func TestAppExtractWithoutImage(t *testing.T) {
	b := &fakeBackend{}
	app := newTestApp(b, nil)

	app, cmd := press(t, app, key('e'))
	if cmd != nil {
		t.Error("e without an image should return nil")
	}
	if app.Notice() != NoticeNoImage {
		t.Errorf("notice = %q, want %q", app.Notice(), NoticeNoImage)
	}
	if b.extractCalls.Load() != 0 {
		t.Error("backend should not be called")
	}
}

func TestAppExtractShowsCard(t *testing.T) {
	b := &fakeBackend{extract: func(context.Context, extract.Upload) (*extract.Result, error) {
		return &extract.Result{
			Success:  true,
			FullText: "CLUB NOVA 10 PM",
			Data:     []extract.Fragment{{Text: "CLUB NOVA", Confidence: 0.916}},
			Structured: &extract.Fields{
				EventName: "CLUB NOVA",
				EventTime: "10 PM",
				Organizer: "Nova Collective",
			},
		}, nil
	}}
	app := newTestApp(b, nil)
	app.ready, app.width, app.height = true, 120, 40

	app = selectImage(t, app)
	app, cmd := press(t, app, key('e'))
	if !app.Controller().Busy() {
		t.Fatal("e should start an extraction")
	}
	if cmd == nil {
		t.Fatal("e should return a command")
	}
	if !strings.Contains(app.View(), "Extracting") {
		t.Error("view should show the extraction in progress")
	}

	app = run(t, app, cmd)
	if _, ok := app.Controller().Phase().(workflow.Result); !ok {
		t.Fatalf("phase = %T, want Result", app.Controller().Phase())
	}

	view := app.View()
	for _, want := range []string{"CLUB NOVA", "Night Mood", "Nova Collective", "CLUB NOVA (92%)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q, got:\n%s", want, view)
		}
	}
	if b.extractCalls.Load() != 1 {
		t.Errorf("extract calls = %d, want 1", b.extractCalls.Load())
	}
}

func TestAppExtractWhileBusy(t *testing.T) {
	release := make(chan struct{})
	b := &fakeBackend{extract: func(ctx context.Context, _ extract.Upload) (*extract.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return &extract.Result{Success: true}, nil
	}}
	defer close(release)
	app := newTestApp(b, nil)

	app = selectImage(t, app)
	app, first := press(t, app, key('e'))
	if first == nil {
		t.Fatal("first e should start an extraction")
	}

	app, second := press(t, app, key('e'))
	if second != nil {
		t.Error("second e while extracting should be ignored")
	}
	if app.Notice() != NoticeCancelHint {
		t.Errorf("notice = %q, want %q", app.Notice(), NoticeCancelHint)
	}
}

func TestAppEscCancelsExtraction(t *testing.T) {
	b := &fakeBackend{extract: func(ctx context.Context, _ extract.Upload) (*extract.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	app := newTestApp(b, nil)

	app = selectImage(t, app)
	app, cmd := press(t, app, key('e'))
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})

	p, ok := app.Controller().Phase().(workflow.Error)
	if !ok {
		t.Fatalf("phase = %T, want Error", app.Controller().Phase())
	}
	if p.Message != workflow.MsgCancelled {
		t.Errorf("message = %q, want %q", p.Message, workflow.MsgCancelled)
	}

	// The late result of the cancelled attempt is dropped.
	app = run(t, app, cmd)
	if p, ok := app.Controller().Phase().(workflow.Error); !ok || p.Message != workflow.MsgCancelled {
		t.Errorf("phase after stale result = %#v", app.Controller().Phase())
	}
}

func TestAppClear(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)
	app = selectImage(t, app)

	app, _ = press(t, app, key('c'))
	if _, ok := app.Controller().Phase().(workflow.Idle); !ok {
		t.Errorf("c should return to Idle, got %T", app.Controller().Phase())
	}
}

func TestAppHistoryNavigation(t *testing.T) {
	b := &fakeBackend{history: func(context.Context) ([]extract.HistoryEntry, error) {
		return historyOf("A", "B", "C"), nil
	}}
	app := newTestApp(b, nil)
	app = run(t, app, app.Init())

	tests := []struct {
		msg  tea.KeyMsg
		want int
	}{
		{key('j'), 1},
		{key('k'), 0},
		{key('k'), 0},
		{key('G'), 2},
		{key('j'), 2},
		{key('g'), 0},
		{tea.KeyMsg{Type: tea.KeyDown}, 1},
		{tea.KeyMsg{Type: tea.KeyUp}, 0},
	}
	for i, tt := range tests {
		app, _ = press(t, app, tt.msg)
		if app.Cursor() != tt.want {
			t.Errorf("step %d (%s): cursor = %d, want %d", i, tt.msg.String(), app.Cursor(), tt.want)
		}
	}
}

func TestAppSelectHistory(t *testing.T) {
	b := &fakeBackend{history: func(context.Context) ([]extract.HistoryEntry, error) {
		return historyOf("A", "B"), nil
	}}
	app := newTestApp(b, nil)
	app = run(t, app, app.Init())

	app, _ = press(t, app, key('j'))
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	p, ok := app.Controller().Phase().(workflow.Result)
	if !ok {
		t.Fatalf("phase = %T, want Result", app.Controller().Phase())
	}
	if !p.FromHistory || p.Outcome.Structured.EventName != "B" {
		t.Errorf("displayed = %+v, want history entry B", p)
	}
}

func TestAppSelectHistoryEmpty(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)

	app, cmd := press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter with no history should return nil")
	}
	if _, ok := app.Controller().Phase().(workflow.Idle); !ok {
		t.Errorf("phase = %T, want Idle", app.Controller().Phase())
	}
}

func TestAppHistoryShrinkClampsCursor(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)
	model, _ := app.Update(workflow.HistoryLoaded{Seq: 1, Entries: historyOf("A", "B", "C")})
	app = model.(App)
	app, _ = press(t, app, key('G'))

	model, _ = app.Update(workflow.HistoryLoaded{Seq: 2, Entries: historyOf("A")})
	app = model.(App)
	if app.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0 after history shrank", app.Cursor())
	}
}

func TestAppRefresh(t *testing.T) {
	var calls atomic.Int32
	b := &fakeBackend{history: func(context.Context) ([]extract.HistoryEntry, error) {
		calls.Add(1)
		return historyOf("A"), nil
	}}
	app := newTestApp(b, nil)

	app, cmd := press(t, app, key('r'))
	if cmd == nil {
		t.Fatal("r should return a command")
	}
	app = run(t, app, cmd)
	if calls.Load() != 1 || len(app.Controller().History()) != 1 {
		t.Errorf("refresh calls = %d, history = %d", calls.Load(), len(app.Controller().History()))
	}
}

func TestAppCopy(t *testing.T) {
	mock := &mockCmd{}
	b := &fakeBackend{history: func(context.Context) ([]extract.HistoryEntry, error) {
		return historyOf("A"), nil
	}}
	app := newTestApp(b, mock)
	app = run(t, app, app.Init())
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	app, cmd := press(t, app, key('y'))
	if cmd == nil {
		t.Fatal("y should return a command")
	}
	if mock.copiedText != "A full text" {
		t.Errorf("copied %q, want %q", mock.copiedText, "A full text")
	}

	app = run(t, app, cmd)
	if app.Notice() != NoticeCopied {
		t.Errorf("notice = %q, want %q", app.Notice(), NoticeCopied)
	}
}

func TestAppCopyFailure(t *testing.T) {
	mock := &mockCmd{copyErr: errors.New("no clipboard utility")}
	app := newTestApp(&fakeBackend{}, mock)
	model, _ := app.Update(workflow.HistoryLoaded{Seq: 1, Entries: historyOf("A")})
	app = model.(App)
	app, _ = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	app, cmd := press(t, app, key('y'))
	app = run(t, app, cmd)
	if !strings.Contains(app.Notice(), "no clipboard utility") {
		t.Errorf("notice = %q, want copy error", app.Notice())
	}
}

func TestAppCopyNothing(t *testing.T) {
	mock := &mockCmd{}
	app := newTestApp(&fakeBackend{}, mock)

	app, cmd := press(t, app, key('y'))
	if cmd != nil {
		t.Error("y with nothing displayed should return nil")
	}
	if app.Notice() != NoticeNothingCopy {
		t.Errorf("notice = %q, want %q", app.Notice(), NoticeNothingCopy)
	}
	if mock.copiedText != "" {
		t.Error("copyText should not be called")
	}
}

func TestAppQuit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{key('q'), {Type: tea.KeyCtrlC}} {
		app := newTestApp(&fakeBackend{}, nil)
		_, cmd := app.Update(msg)
		if cmd == nil {
			t.Fatalf("%s should return a command", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s should return tea.Quit", msg.String())
		}
	}
}

func TestAppQuitCancelsExtraction(t *testing.T) {
	b := &fakeBackend{extract: func(ctx context.Context, _ extract.Upload) (*extract.Result, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return &extract.Result{Success: true}, nil
		}
	}}
	app := newTestApp(b, nil)
	app = selectImage(t, app)
	app, cmd := press(t, app, key('e'))

	_, quit := app.Update(key('q'))
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}

	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("e should return a batch")
	}
	var finished *workflow.ExtractFinished
	for _, c := range batch {
		if msg, ok := c().(workflow.ExtractFinished); ok {
			finished = &msg
		}
	}
	if finished == nil {
		t.Fatal("batch should contain the extraction")
	}
	if !errors.Is(finished.Err, context.Canceled) {
		t.Errorf("extraction err = %v, want context.Canceled", finished.Err)
	}
}

func TestAppViewNotReady(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)
	if got := app.View(); got != "Loading..." {
		t.Errorf("View before size = %q, want Loading...", got)
	}
}

func TestAppViewIdle(t *testing.T) {
	app := newTestApp(&fakeBackend{}, nil)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	app = model.(App)

	view := app.View()
	for _, want := range []string{"VisionText", "No image selected", "Upload Image to See Results", "No past extractions", "Idle"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q, got:\n%s", want, view)
		}
	}
}

func TestAppViewError(t *testing.T) {
	b := &fakeBackend{extract: func(context.Context, extract.Upload) (*extract.Result, error) {
		return &extract.Result{Success: false, Error: "blurry image"}, nil
	}}
	app := newTestApp(b, nil)
	app.ready, app.width, app.height = true, 80, 30

	app = selectImage(t, app)
	app, cmd := press(t, app, key('e'))
	app = run(t, app, cmd)

	view := app.View()
	if !strings.Contains(view, "blurry image") || !strings.Contains(view, "Press e to retry") {
		t.Errorf("view should show the failure and retry hint, got:\n%s", view)
	}
}

func TestRenderStatusBarHints(t *testing.T) {
	tests := []struct {
		phase workflow.Phase
		want  []string
		not   []string
	}{
		{workflow.Idle{}, []string{"Idle", "open", "quit"}, []string{"cancel", "copy"}},
		{workflow.Extracting{}, []string{"Extracting", "cancel"}, []string{"copy"}},
		{workflow.Result{}, []string{"Result", "copy", "re-run"}, []string{"cancel"}},
		{workflow.Error{}, []string{"Error", "extract", "clear"}, []string{"copy"}},
	}
	for _, tt := range tests {
		bar := RenderStatusBar(tt.phase, 160)
		for _, w := range tt.want {
			if !strings.Contains(bar, w) {
				t.Errorf("%T: status bar should contain %q, got %q", tt.phase, w, bar)
			}
		}
		for _, n := range tt.not {
			if strings.Contains(bar, n) {
				t.Errorf("%T: status bar should not contain %q, got %q", tt.phase, n, bar)
			}
		}
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	policy := ImagePolicy{MaxBytes: 100, Allow: config.DefaultConfig().AllowsExtension}

	ok := write("poster.PNG", 10)
	up, err := LoadImage(ok, policy)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if up.Name != "poster.PNG" || up.Size() != 10 {
		t.Errorf("upload = %q (%d bytes)", up.Name, up.Size())
	}

	if _, err := LoadImage("'"+ok+"'", policy); err != nil {
		t.Errorf("quoted path: %v", err)
	}

	if _, err := LoadImage(write("notes.txt", 10), policy); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("txt err = %v, want ErrUnsupportedImage", err)
	}
	if _, err := LoadImage(write("huge.jpg", 101), policy); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("large err = %v, want ErrImageTooLarge", err)
	}
	if _, err := LoadImage(filepath.Join(dir, "missing.png"), policy); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing err = %v, want not exist", err)
	}
	if _, err := LoadImage("   ", policy); err == nil {
		t.Error("blank path should fail")
	}
}

func TestLoadImageCmd(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := LoadImageCmd(ImagePolicy{Allow: config.DefaultConfig().AllowsExtension})(p)()
	loaded, ok := msg.(ImageLoaded)
	if !ok {
		t.Fatalf("msg = %T, want ImageLoaded", msg)
	}
	if loaded.Err != nil || string(loaded.Upload.Data) != "png" {
		t.Errorf("loaded = %+v", loaded)
	}
}

// Package fixture is a local stand-in for the extraction service.
//
// It speaks the same HTTP contract as the real backend (POST /ocr and
// GET /events) but recognizes text through a Recognizer, normally one that
// reads prepared transcripts, and keeps history in SQLite. Failures are
// reported the way the real backend reports them: HTTP 200 with
// {"success": false, "error": "..."}.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/visiontext/internal/extract"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/posterparse"
	"github.com/abelbrown/visiontext/internal/store"
)

const comp = "fixture"

// RootMessage is returned by GET /.
const RootMessage = "VisionText fixture API is running"

// multipartOverhead is allowed on top of the image limit for form framing.
const multipartOverhead = 1 << 20

// Options configures a Server.
type Options struct {
	Recognizer    Recognizer
	Store         *store.Store
	Logger        *otel.Logger
	MaxImageBytes int64
}

// Server is the fixture HTTP backend.
type Server struct {
	rec      Recognizer
	st       *store.Store
	log      *otel.Logger
	maxBytes int64
	metrics  *Metrics
	router   chi.Router

	now   func() time.Time
	newID func() string
}

// New builds a Server. Recognizer and Store are required.
func New(opts Options) *Server {
	maxBytes := opts.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	s := &Server{
		rec:      opts.Recognizer,
		st:       opts.Store,
		log:      opts.Logger,
		maxBytes: maxBytes,
		metrics:  newMetrics(),
		now:      time.Now,
		newID:    uuid.NewString,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Post("/ocr", s.handleOCR)
	r.Get("/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	s.router = r
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("fixture: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("fixture: shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

type rootResponse struct {
	Message string `json:"message"`
}

type ocrResponse struct {
	extract.Result
	RecordID string `json:"record_id,omitempty"`
}

type eventsResponse struct {
	Success bool                   `json:"success"`
	Events  []extract.HistoryEntry `json:"events"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.metrics.reqTotal.WithLabelValues("root", "ok").Inc()
	writeJSON(w, http.StatusOK, rootResponse{Message: RootMessage})
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.ocrDur.Observe(time.Since(start).Seconds()) }()

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, "ocr", name, err)
		return
	}

	frags, err := s.rec.Recognize(r.Context(), name, data)
	if err != nil {
		s.fail(w, "ocr", name, err)
		return
	}

	texts := make([]string, len(frags))
	for i, f := range frags {
		texts[i] = f.Text
	}
	fields := posterparse.Parse(strings.Join(texts, "\n"))

	doc := store.Document{
		ID:        s.newID(),
		Created:   s.now(),
		FileName:  name,
		Fields:    fields,
		Fragments: frags,
		FullText:  strings.Join(texts, "\n"),
	}
	recordID := doc.ID
	if err := s.st.SaveExtraction(r.Context(), doc); err != nil {
		// The extraction itself succeeded; only history misses it.
		s.log.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindFixtureError, Comp: comp, File: name, Err: err.Error()})
		recordID = ""
	}

	s.metrics.reqTotal.WithLabelValues("ocr", "ok").Inc()
	s.metrics.fragments.Add(float64(len(frags)))
	s.log.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindFixtureOCR,
		Comp:  comp,
		File:  name,
		Bytes: len(data),
		Count: len(frags),
		Dur:   time.Since(start),
	})

	writeJSON(w, http.StatusOK, ocrResponse{
		Result: extract.Result{
			Success:    true,
			Data:       frags,
			FullText:   strings.Join(texts, " "),
			Structured: &fields,
		},
		RecordID: recordID,
	})
}

// readUpload returns the name and bytes of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return header.Filename, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return header.Filename, nil, fmt.Errorf("image exceeds %d bytes", s.maxBytes)
	}
	if len(data) == 0 {
		return header.Filename, nil, errors.New("empty upload")
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return header.Filename, nil, fmt.Errorf("cannot identify image file (detected %s)", ct)
	}
	return header.Filename, data, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	docs, err := s.st.ListExtractions(r.Context(), 0)
	if err != nil {
		s.fail(w, "events", "", err)
		return
	}

	events := make([]extract.HistoryEntry, len(docs))
	for i, d := range docs {
		events[i] = d.HistoryEntry()
	}

	s.metrics.reqTotal.WithLabelValues("events", "ok").Inc()
	s.metrics.stored.Set(float64(len(docs)))
	s.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFixtureEvents, Comp: comp, Count: len(events)})

	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: events})
}

func (s *Server) fail(w http.ResponseWriter, route, file string, err error) {
	s.metrics.reqTotal.WithLabelValues(route, "error").Inc()
	s.log.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFixtureError, Comp: comp, File: file, Err: err.Error(), Msg: route})
	writeJSON(w, http.StatusOK, failureResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

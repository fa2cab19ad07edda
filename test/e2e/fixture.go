// Package e2e drives the visiontext binary through a pseudo terminal
// against an in-process fixture backend.
package e2e

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abelbrown/visiontext/internal/fixture"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/store"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

const summerTranscript = "HARBOUR ARTS COUNCIL PRESENTS SUMMER SOUNDS\t0.98\n" +
	"SATURDAY 12th OCTOBER\t0.95\n" +
	"7:30 PM - 11 PM\t0.91\n" +
	"42 Harbour Road, Chennai\n" +
	"Live Music and DJs\t0.88\n"

// startFixture serves the fixture API with a transcript for summer.png and
// returns its URL and the path of a matching image on disk.
func startFixture(t *testing.T) (baseURL, imagePath string) {
	t.Helper()
	dir := t.TempDir()

	transcripts := filepath.Join(dir, "transcripts")
	if err := os.MkdirAll(transcripts, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(transcripts, "summer.txt"), []byte(summerTranscript), 0o644); err != nil {
		t.Fatal(err)
	}

	imagePath = filepath.Join(dir, "summer.png")
	if err := os.WriteFile(imagePath, pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(filepath.Join(dir, "fixture.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(fixture.New(fixture.Options{
		Recognizer: fixture.TranscriptRecognizer{Dir: transcripts},
		Store:      st,
		Logger:     otel.NewNullLogger(),
	}).Handler())
	t.Cleanup(srv.Close)

	return srv.URL, imagePath
}

package fixture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abelbrown/visiontext/internal/extract"
)

// ErrNoTranscript is returned when no transcript exists for an upload.
var ErrNoTranscript = errors.New("fixture: no transcript for upload")

// Recognizer turns an uploaded image into recognized text fragments.
type Recognizer interface {
	Recognize(ctx context.Context, name string, data []byte) ([]extract.Fragment, error)
}

// TranscriptRecognizer serves prepared transcripts instead of running OCR.
// The transcript for "poster.png" is <Dir>/poster.txt. Each non-blank line
// is one fragment, optionally followed by a tab and a confidence in [0,1].
type TranscriptRecognizer struct {
	Dir string
}

// defaultConfidence is used for transcript lines without one.
const defaultConfidence = 1.0

// Recognize implements Recognizer. The image bytes are not inspected.
func (t TranscriptRecognizer) Recognize(ctx context.Context, name string, _ []byte) ([]extract.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := filepath.Base(filepath.Clean("/" + name))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return nil, fmt.Errorf("%w: %q", ErrNoTranscript, name)
	}

	path := filepath.Join(t.Dir, stem+".txt")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNoTranscript, name)
		}
		return nil, fmt.Errorf("fixture: open transcript: %w", err)
	}
	defer f.Close()

	frags := []extract.Fragment{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if frag, ok := parseTranscriptLine(sc.Text()); ok {
			frags = append(frags, frag)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fixture: read transcript %s: %w", path, err)
	}
	return frags, nil
}

func parseTranscriptLine(line string) (extract.Fragment, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return extract.Fragment{}, false
	}

	text, conf := line, defaultConfidence
	if i := strings.LastIndexByte(line, '\t'); i >= 0 {
		if c, err := strconv.ParseFloat(strings.TrimSpace(line[i+1:]), 64); err == nil && c >= 0 && c <= 1 {
			text, conf = line[:i], c
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return extract.Fragment{}, false
	}
	return extract.Fragment{Text: text, Confidence: conf}, true
}

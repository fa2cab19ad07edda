package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/visiontext/internal/extract"
)

var (
	// ErrUnsupportedImage is returned for files without an allowed extension.
	ErrUnsupportedImage = errors.New("unsupported image type")

	// ErrImageTooLarge is returned for files over the size limit.
	ErrImageTooLarge = errors.New("image too large")
)

// ImagePolicy decides which files may be picked. A nil Allow accepts any
// name; a non-positive MaxBytes disables the size check.
type ImagePolicy struct {
	MaxBytes int64
	Allow    func(name string) bool
}

func (p ImagePolicy) allows(name string) bool {
	return p.Allow == nil || p.Allow(name)
}

// LoadImage reads path into an Upload, enforcing the policy.
// A leading "~/" is expanded and surrounding quotes (as left by dragging a
// file into a terminal) are stripped.
func LoadImage(path string, policy ImagePolicy) (extract.Upload, error) {
	path = cleanPath(path)
	if path == "" {
		return extract.Upload{}, errors.New("no file given")
	}
	if !policy.allows(path) {
		return extract.Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return extract.Upload{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return extract.Upload{}, err
	}
	if info.IsDir() {
		return extract.Upload{}, fmt.Errorf("%s is a directory", path)
	}
	if policy.MaxBytes > 0 && info.Size() > policy.MaxBytes {
		return extract.Upload{}, fmt.Errorf("%w: %s is %s, limit %s",
			ErrImageTooLarge, filepath.Base(path), formatBytes(info.Size()), formatBytes(policy.MaxBytes))
	}

	var r io.Reader = f
	if policy.MaxBytes > 0 {
		r = io.LimitReader(f, policy.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return extract.Upload{}, err
	}
	if policy.MaxBytes > 0 && int64(len(data)) > policy.MaxBytes {
		return extract.Upload{}, fmt.Errorf("%w: %s", ErrImageTooLarge, filepath.Base(path))
	}
	return extract.Upload{Name: filepath.Base(path), Data: data}, nil
}

// LoadImageCmd wraps LoadImage as a command producing ImageLoaded.
func LoadImageCmd(policy ImagePolicy) func(path string) tea.Cmd {
	return func(path string) tea.Cmd {
		return func() tea.Msg {
			up, err := LoadImage(path, policy)
			return ImageLoaded{Path: path, Upload: up, Err: err}
		}
	}
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Package ui provides the Bubble Tea TUI for VisionText.
package ui

import "github.com/abelbrown/visiontext/internal/extract"

// ImageLoaded is sent when a picked file has been read from disk.
type ImageLoaded struct {
	Path   string
	Upload extract.Upload
	Err    error
}

// ClipboardCopied is sent when a clipboard export finishes.
type ClipboardCopied struct {
	Chars int
	Err   error
}

// Package posterparse pulls event fields out of text recognized on an
// event poster. It is line and keyword driven: good enough for flyers that
// follow the usual "X PRESENTS Y / date / time / venue" layout.
package posterparse

import (
	"regexp"
	"strings"

	"github.com/abelbrown/visiontext/internal/extract"
)

// DefaultEntryType is reported unless the poster mentions free entry.
const DefaultEntryType = "Paid"

// FreeEntry is reported when the poster mentions free entry.
const FreeEntry = "FREE ENTRY"

var (
	websitePattern = regexp.MustCompile(`(?i)(www\.[a-z0-9-]+\.[a-z]{2,}|https?://[^\s]+|ww\.[a-z0-9-]+\.[a-z]{2,})`)
	timePattern    = regexp.MustCompile(`(?i)(\b\d{1,2}[:.]\d{2}\s*(AM|PM)?\b|\b\d{1,2}\s*(AM|PM)\b)`)
	freePattern    = regexp.MustCompile(`(?i)FREE\s*(ENTRY|ADMISSION|TICKET)?`)
	presentsSplit  = regexp.MustCompile(`(?i)PRESENTS`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d{1,2}(st|nd|rd|th)?\s*-\s*\d{1,2}(st|nd|rd|th)?\s*\w+`),
		regexp.MustCompile(`(?i)\b(MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY|SUNDAY)\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(st|nd|rd|th)\b`),
		regexp.MustCompile(`(?i)\b(JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER|OCT|NOV|DEC)\b`),
	}

	locationKeywords = []string{
		"ROAD", "STREET", "AVE", "AVENUE", "WAY", "DRIVE", "DR",
		"LAS VEGAS", "NV", "CHENNAI", "MUMBAI", "CITY", "ST.", "SUITE",
	}

	highlightKeywords = []string{
		"STUDENT", "SCULPTURE", "SHOWCASE", "ENTERTAINMENT",
		"REFRESHMENTS", "DAILY", "DJS", "MUSIC",
	}
)

// minHighlightLen is the length a line must exceed to be used as a
// fallback highlight.
const minHighlightLen = 10

// Parse extracts event fields from newline-separated recognized text.
// Fields it cannot find are set to extract.NotAvailable; Highlights is
// never nil.
func Parse(text string) extract.Fields {
	f := extract.Fields{
		EventName:  extract.NotAvailable,
		EventDate:  extract.NotAvailable,
		EventTime:  extract.NotAvailable,
		Organizer:  extract.NotAvailable,
		Location:   extract.NotAvailable,
		Website:    extract.NotAvailable,
		EntryType:  DefaultEntryType,
		Highlights: []string{},
	}
	if text == "" {
		return f
	}

	lines := splitLines(text)

	if m := websitePattern.FindString(text); m != "" {
		f.Website = m
	}

	var times []string
	for _, m := range timePattern.FindAllString(text, -1) {
		times = appendUnique(times, m)
	}
	if len(times) > 0 {
		f.EventTime = strings.Join(times, " - ")
	}

	if freePattern.MatchString(text) {
		f.EntryType = FreeEntry
	}

	var dates []string
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			dates = appendUnique(dates, m)
		}
	}
	if len(dates) > 0 {
		f.EventDate = strings.Join(dates, ", ")
	}

	for _, line := range lines {
		if !containsFold(line, "PRESENTS") {
			continue
		}
		parts := presentsSplit.Split(line, -1)
		f.Organizer = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			if name := strings.TrimSpace(parts[1]); name != "" {
				f.EventName = name
			}
		}
		break
	}

	if f.EventName == extract.NotAvailable {
		for _, line := range lines {
			if line != f.Organizer && line != f.EventDate && !containsFold(line, "PRESENTS") {
				f.EventName = line
				break
			}
		}
	}

	for _, line := range lines {
		if containsAny(line, locationKeywords) && line != f.Website && line != f.EventDate {
			f.Location = line
			break
		}
	}

	for _, line := range lines {
		if containsAny(line, highlightKeywords) && line != f.EventName && line != f.Organizer {
			f.Highlights = append(f.Highlights, line)
		}
	}
	if len(f.Highlights) == 0 {
		for _, line := range lines {
			if len(line) > minHighlightLen &&
				line != f.EventName && line != f.Organizer &&
				line != f.EventDate && line != f.Website {
				f.Highlights = append(f.Highlights, line)
			}
		}
	}

	return f
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// appendUnique appends s (trimmed) unless an equal string, ignoring case,
// is already present.
func appendUnique(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return list
	}
	for _, have := range list {
		if strings.EqualFold(have, s) {
			return list
		}
	}
	return append(list, s)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), substr)
}

func containsAny(s string, keywords []string) bool {
	upper := strings.ToUpper(s)
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

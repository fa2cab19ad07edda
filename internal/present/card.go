// Package present maps loosely structured extraction payloads onto the
// event card the UI renders.
//
// Everything here is pure: the same input always yields the same Card and
// no function reads state outside its arguments.
package present

import (
	"math"
	"strings"

	"github.com/abelbrown/visiontext/internal/extract"
)

// Atmosphere is the mood an event card is styled with.
type Atmosphere int

const (
	Day Atmosphere = iota
	Night
)

func (a Atmosphere) String() string {
	if a == Night {
		return "night"
	}
	return "day"
}

// Card is the canonical presentation of one event.
// Every field is defined; Time may be empty.
type Card struct {
	Title       string
	Date        string
	Time        string
	Host        string
	Location    string
	Description string
	Lineup      []string
	Atmosphere  Atmosphere
}

// AtmosphereLabel is the badge shown on the card.
func (c Card) AtmosphereLabel() string {
	if c.Atmosphere == Night {
		return "🌙 Night Mood"
	}
	return "☀️ Day Vibe"
}

const descriptionSep = " • "

// Placeholder returns the card shown before anything has been extracted.
func Placeholder() Card {
	return Card{
		Title:       "Upload Image to See Results",
		Date:        "Date Range",
		Time:        "Time / Entry",
		Host:        "Organizer Name",
		Location:    "Location",
		Description: "Detailed event highlights will appear here.",
		Lineup:      []string{},
		Atmosphere:  ClassifyAtmosphere("Time / Entry"),
	}
}

// Normalize derives a Card from f. A nil f yields the placeholder card.
// Each field is resolved independently.
func Normalize(f *extract.Fields) Card {
	if f == nil {
		return Placeholder()
	}

	c := Card{
		Title:       firstOf(f.EventName, "Event Title"),
		Date:        firstOf(f.EventDate, "Date Not Found"),
		Host:        firstOf(f.Organizer, "Host Not Found"),
		Location:    firstOf(f.Location, f.Website, extract.NotAvailable),
		Description: "No description",
		Lineup:      []string{},
	}

	if f.EventTime != "" && f.EventTime != extract.NotAvailable {
		c.Time = f.EventTime
	} else {
		c.Time = f.EntryType
	}

	if len(f.Highlights) > 0 {
		c.Description = strings.Join(f.Highlights, descriptionSep)
		c.Lineup = append(c.Lineup, f.Highlights...)
	}

	c.Atmosphere = ClassifyAtmosphere(c.Time)
	return c
}

// ConfidencePercent rounds a [0,1] confidence to a whole percent, clamped
// to 0..100.
func ConfidencePercent(confidence float64) int {
	if math.IsNaN(confidence) || confidence <= 0 {
		return 0
	}
	if confidence >= 1 {
		return 100
	}
	return int(math.Round(confidence * 100))
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package extract talks to the remote text-extraction service.
//
// The service turns an uploaded image into recognized text fragments and,
// when it can, a set of structured event fields. Payloads are loosely
// structured: any member may be missing, null or empty, and the service
// uses "N/A" as a sentinel for fields it could not find.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// NotAvailable is the sentinel the service writes for fields it could not find.
const NotAvailable = "N/A"

// Upload is an image submitted for extraction.
type Upload struct {
	Name string // file name sent in the multipart header
	Data []byte
}

// Size returns the upload size in bytes.
func (u Upload) Size() int {
	return len(u.Data)
}

// Fragment is one piece of recognized text. Confidence is display-only.
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Fields are the structured event attributes the service classified.
// An empty string means the member was absent.
type Fields struct {
	EventName  string   `json:"event_name,omitempty"`
	EventDate  string   `json:"event_date,omitempty"`
	EventTime  string   `json:"event_time,omitempty"`
	Organizer  string   `json:"organizer,omitempty"`
	Location   string   `json:"location,omitempty"`
	Website    string   `json:"website,omitempty"`
	EntryType  string   `json:"entry_type,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Result is the response body of POST /ocr.
type Result struct {
	Success    bool       `json:"success"`
	FullText   string     `json:"full_text,omitempty"`
	Data       []Fragment `json:"data,omitempty"`
	Structured *Fields    `json:"structured,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// HistoryEntry is one previously completed extraction.
type HistoryEntry struct {
	ID           string    `json:"_id"`
	Timestamp    Timestamp `json:"timestamp"`
	EventDetails Fields    `json:"event_details"`
	FullText     string    `json:"full_text,omitempty"`
}

// historyResponse is the response body of GET /events.
type historyResponse struct {
	Success bool           `json:"success"`
	Events  []HistoryEntry `json:"events"`
	Error   string         `json:"error,omitempty"`
}

// Timestamp decodes the instants the service writes. The reference backend
// emits naive ISO-8601 local times without a zone, so RFC 3339 alone is
// not enough. Unrecognized values decode to the zero time instead of
// failing the whole payload.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parseTimestamp(strings.TrimSpace(s))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		var (
			ts  time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			ts, err = time.Parse(layout, s)
		} else {
			ts, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return ts
		}
	}
	return time.Time{}
}

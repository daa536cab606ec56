package tape

import (
	"strings"
	"time"
)

// DisplayLayout is the layout used to render creation timestamps.
// It is also the text format SQLite's CURRENT_TIMESTAMP produces.
const DisplayLayout = "2006-01-02 15:04:05"

// Tape represents one physical video cassette in the catalog.
type Tape struct {
	// ID is assigned by storage on creation and never changes
	ID int64 `json:"id"`

	// Title is the film title (never empty once stored)
	Title string `json:"title"`

	// Tape is the cassette's own label or identifier (never empty once stored)
	Tape string `json:"tape"`

	// CreatedAt is assigned by storage on creation and never changes
	CreatedAt time.Time `json:"created_at"`
}

// CreatedAtDisplay renders the creation time as YYYY-MM-DD HH:MM:SS.
func (t Tape) CreatedAtDisplay() string {
	if t.CreatedAt.IsZero() {
		return ""
	}
	return t.CreatedAt.Format(DisplayLayout)
}

// CleanField trims surrounding whitespace from a user-supplied field.
// A field that is empty after cleaning is treated as missing.
func CleanField(s string) string {
	return strings.TrimSpace(s)
}

// ParseTimestamp parses a stored timestamp. Both the display layout and
// RFC 3339 are accepted, since older files may hold either.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(DisplayLayout, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

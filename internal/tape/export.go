package tape

import "time"

// ExportRecord represents a tape record in JSONL export format.
// It is used for parsing export files during import.
type ExportRecord struct {
	// Header detection field - true only for header line
	CassettesExport bool `json:"_cassettes_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportID      string `json:"export_id,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	// Tape fields
	ID        int64  `json:"id,omitempty"` // IGNORED on import, storage assigns a new id
	Title     string `json:"title"`
	Tape      string `json:"tape"`
	CreatedAt string `json:"created_at"`
}

// ToTape converts an ExportRecord to a Tape, cleaning the text fields.
// An unparsable or missing created_at yields a zero CreatedAt.
func (r *ExportRecord) ToTape() Tape {
	t := Tape{
		Title: CleanField(r.Title),
		Tape:  CleanField(r.Tape),
	}
	if ts, err := ParseTimestamp(r.CreatedAt); err == nil {
		t.CreatedAt = ts
	}
	return t
}

// TapeToExportRecord converts a Tape to an ExportRecord for export.
func TapeToExportRecord(t Tape) *ExportRecord {
	return &ExportRecord{
		ID:        t.ID,
		Title:     t.Title,
		Tape:      t.Tape,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

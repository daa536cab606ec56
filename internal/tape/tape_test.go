package tape

import (
	"testing"
	"time"
)

func TestMatches(t *testing.T) {
	matrix := Tape{ID: 2, Title: "Matrix", Tape: "A1"}
	alien := Tape{ID: 1, Title: "Alien", Tape: "B2"}

	tests := []struct {
		name     string
		tape     Tape
		term     string
		expected bool
	}{
		{"empty term matches everything", alien, "", true},
		{"title substring, case-insensitive", matrix, "ma", true},
		{"title uppercase term", matrix, "TRI", true},
		{"tape label match", alien, "b2", true},
		{"no match in either field", alien, "ma", false},
		{"substring not prefix", matrix, "rix", true},
		{"whole term must be contiguous", matrix, "mx", false},
		{"unicode case folding", Tape{Title: "Ÿ ÉTÉ", Tape: "X"}, "ÿ été", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.tape, tt.term); got != tt.expected {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.tape.Title, tt.term, got, tt.expected)
			}
		})
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	tapes := []Tape{
		{ID: 3, Title: "Mad Max", Tape: "VHS-003"},
		{ID: 2, Title: "Matrix", Tape: "VHS-002"},
		{ID: 1, Title: "Alien", Tape: "VHS-001"},
	}

	got := Filter(tapes, "ma")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 2 {
		t.Errorf("order = [%d %d], want [3 2]", got[0].ID, got[1].ID)
	}
}

func TestFilter_EmptyTermReturnsInput(t *testing.T) {
	tapes := []Tape{{ID: 2, Title: "Matrix"}, {ID: 1, Title: "Alien"}}

	got := Filter(tapes, "")
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("Filter(\"\") = %v, want input unchanged", got)
	}
}

func TestFilter_NoMatches(t *testing.T) {
	got := Filter([]Tape{{ID: 1, Title: "Alien", Tape: "B2"}}, "zzz")
	if got == nil || len(got) != 0 {
		t.Errorf("Filter() = %v, want empty non-nil slice", got)
	}
}

func TestCreatedAtDisplay(t *testing.T) {
	ts := time.Date(2019, 3, 7, 21, 5, 9, 0, time.UTC)
	got := Tape{CreatedAt: ts}.CreatedAtDisplay()
	if got != "2019-03-07 21:05:09" {
		t.Errorf("CreatedAtDisplay() = %q, want %q", got, "2019-03-07 21:05:09")
	}

	if got := (Tape{}).CreatedAtDisplay(); got != "" {
		t.Errorf("zero CreatedAtDisplay() = %q, want empty", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, s := range []string{"2020-01-02 03:04:05", "2020-01-02T03:04:05Z", " 2020-01-02 03:04:05 "} {
		got, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) error = %v", s, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp(yesterday) expected error")
	}
}

func TestCleanField(t *testing.T) {
	if got := CleanField("  Alien \t"); got != "Alien" {
		t.Errorf("CleanField() = %q, want %q", got, "Alien")
	}
	if got := CleanField("   "); got != "" {
		t.Errorf("CleanField(spaces) = %q, want empty", got)
	}
}

func TestExportRecord_RoundTrip(t *testing.T) {
	original := Tape{
		ID:        9,
		Title:     "Alien",
		Tape:      "VHS-001",
		CreatedAt: time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	rec := TapeToExportRecord(original)
	if rec.CreatedAt != "2018-06-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q", rec.CreatedAt)
	}

	back := rec.ToTape()
	if back.ID != 0 {
		t.Errorf("ToTape() ID = %d, want 0 (storage assigns ids)", back.ID)
	}
	if back.Title != original.Title || back.Tape != original.Tape {
		t.Errorf("ToTape() = %+v, want title/tape from %+v", back, original)
	}
	if !back.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", back.CreatedAt, original.CreatedAt)
	}
}

func TestExportRecord_ToTape_BadTimestamp(t *testing.T) {
	rec := ExportRecord{Title: " Alien ", Tape: "B2", CreatedAt: "garbage"}
	got := rec.ToTape()
	if !got.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero", got.CreatedAt)
	}
	if got.Title != "Alien" {
		t.Errorf("Title = %q, want trimmed %q", got.Title, "Alien")
	}
}

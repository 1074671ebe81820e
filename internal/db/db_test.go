package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"audit_log", "tracking_hits"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer d.Close()

	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.FixedZone("x", 3600))
	out, err := ParseTime(FormatTime(in))
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	early := FormatTime(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	late := FormatTime(time.Date(2026, 1, 1, 10, 0, 0, 1000, time.UTC))
	if !(early < late) {
		t.Errorf("expected %q < %q", early, late)
	}
}

func TestParseTimeSQLiteDefault(t *testing.T) {
	got, err := ParseTime("2026-01-02 03:04:05")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if got.Hour() != 3 || got.Location() != time.UTC {
		t.Errorf("unexpected time %v", got)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndClose(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 16, 5)

	records := []Record{
		{CaptureID: "a", Status: "finished", Mode: "still"},
		{CaptureID: "b", Status: "failed", Mode: "recording", Error: "boom"},
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	f, err := os.Open(filepath.Join(dir, date, "captures.jsonl"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer func() { _ = f.Close() }()

	var got []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].CaptureID != "a" || got[1].CaptureID != "b" {
		t.Fatalf("unexpected order %q, %q", got[0].CaptureID, got[1].CaptureID)
	}
	if got[0].At.IsZero() {
		t.Fatal("expected timestamp stamped on write")
	}
	if got[1].Error != "boom" {
		t.Fatalf("expected error preserved, got %q", got[1].Error)
	}
}

func TestWriteAfterCloseErrors(t *testing.T) {
	w := NewWriter(t.TempDir(), 4, 5)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write(Record{CaptureID: "late"}); err == nil {
		t.Fatal("expected write after close to error")
	}
}

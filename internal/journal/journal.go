package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Record is one capture audit entry appended to the journal.
type Record struct {
	CaptureID       string    `json:"capture_id"`
	Status          string    `json:"status"`
	Mode            string    `json:"mode"`
	Format          string    `json:"format,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty"`
	Frames          int64     `json:"frames,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Partial         bool      `json:"partial,omitempty"`
	SourceDocument  string    `json:"source_document,omitempty"`
	Error           string    `json:"error,omitempty"`
	At              time.Time `json:"at"`
}

// Writer appends capture records as JSON lines to date-organized files. All
// writes are async; the capture path never blocks on journal IO.
type Writer struct {
	baseDir   string
	maxSizeMB int

	writeCh chan Record
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

// NewWriter creates an async journal writer rooted at baseDir.
func NewWriter(baseDir string, bufferSize, maxSizeMB int) *Writer {
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan Record, bufferSize),
		done:      make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Write queues a record. Never blocks: a full buffer drops the record.
func (w *Writer) Write(record Record) error {
	if record.At.IsZero() {
		record.At = time.Now().UTC()
	}
	select {
	case w.writeCh <- record:
		return nil
	case <-w.done:
		return fmt.Errorf("journal writer is closed")
	default:
		slog.Warn("journal buffer full, dropping record", "capture_id", record.CaptureID)
		return fmt.Errorf("buffer full")
	}
}

// Close shuts down the writer and flushes pending records.
func (w *Writer) Close() error {
	close(w.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-timeout:
			slog.Warn("journal close timeout, some records may be lost")
			goto done
		default:
			goto done
		}
	}

done:
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		return w.logger.Close()
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeRecord(record Record) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("journal marshal failed", "error", err, "capture_id", record.CaptureID)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	currentDate := time.Now().UTC().Format("2006-01-02")
	if currentDate != w.currentDate || w.logger == nil {
		w.rotateForDate(currentDate)
	}
	if w.logger == nil {
		return
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err, "capture_id", record.CaptureID)
	}
}

func (w *Writer) rotateForDate(date string) {
	if w.logger != nil {
		_ = w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("journal directory creation failed", "error", err, "dir", dir)
		return
	}

	w.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "captures.jsonl"),
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}

	w.currentDate = date
	slog.Info("opened journal file", "file", w.logger.Filename)
}

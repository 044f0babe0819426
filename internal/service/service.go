package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/pagecast/internal/browser"
	"github.com/dgnsrekt/pagecast/internal/capture"
	"github.com/dgnsrekt/pagecast/internal/events"
	"github.com/dgnsrekt/pagecast/internal/journal"
	"github.com/dgnsrekt/pagecast/internal/notify"
	"github.com/dgnsrekt/pagecast/internal/store"
)

// CaptureRunner abstracts the capture pipeline so the service can be tested
// without a browser.
type CaptureRunner interface {
	Run(ctx context.Context, req capture.Request) (capture.Result, error)
}

// Service coordinates capture runs against the artifact store, fans out
// lifecycle events, and fires the completion webhook when one is configured.
type Service struct {
	runner CaptureRunner
	store  *store.Store
	broker *events.Broker

	notifyEndpoint string
	httpClient     *http.Client
	journal        *journal.Writer

	chromePath string
	finalizer  *capture.Finalizer
}

// Config wires a Service. Runner, Store, and Broker are required;
// NotifyEndpoint is optional.
type Config struct {
	Runner         CaptureRunner
	Store          *store.Store
	Broker         *events.Broker
	NotifyEndpoint string
	HTTPClient     *http.Client
	Journal        *journal.Writer
	ChromePath     string
	Finalizer      *capture.Finalizer
}

func New(cfg Config) *Service {
	return &Service{
		runner:         cfg.Runner,
		store:          cfg.Store,
		broker:         cfg.Broker,
		notifyEndpoint: cfg.NotifyEndpoint,
		httpClient:     cfg.HTTPClient,
		journal:        cfg.Journal,
		chromePath:     cfg.ChromePath,
		finalizer:      cfg.Finalizer,
	}
}

// Request describes one capture submitted through the daemon. Output
// placement is the store's concern, not the caller's.
type Request struct {
	DocumentPath    string
	Mode            capture.Mode
	Format          capture.Format
	DurationSeconds *float64
	ViewportWidth   int
	ViewportHeight  int
}

// Capture runs one capture and commits the artifact under a fresh ID. When
// conversion is unavailable the native-container artifact is committed and
// returned alongside the coded error so callers can flag the degradation.
func (s *Service) Capture(ctx context.Context, req Request) (store.CaptureMeta, error) {
	id := uuid.New().String()
	s.broker.Publish(events.Event{Type: events.TypeCaptureStarted, CaptureID: id})

	format := req.Format
	if format == "" {
		if req.Mode == capture.ModeRecording {
			format = capture.FormatMP4
		} else {
			format = capture.FormatPNG
		}
	}

	res, runErr := s.runner.Run(ctx, capture.Request{
		DocumentPath:    req.DocumentPath,
		OutputPath:      s.store.ArtifactPath(id, format.Ext()),
		Mode:            req.Mode,
		Format:          format,
		DurationSeconds: req.DurationSeconds,
		ViewportWidth:   req.ViewportWidth,
		ViewportHeight:  req.ViewportHeight,
	})
	if runErr != nil && res.OutputPath == "" {
		s.broker.Publish(events.Event{Type: events.TypeCaptureFailed, CaptureID: id, Detail: runErr.Error()})
		s.notifyCapture(notify.CaptureEvent{
			CaptureID: id,
			Status:    "failed",
			Mode:      string(req.Mode),
			Error:     runErr.Error(),
		})
		s.journalRecord(journal.Record{
			CaptureID:      id,
			Status:         "failed",
			Mode:           string(req.Mode),
			SourceDocument: req.DocumentPath,
			Error:          runErr.Error(),
		})
		return store.CaptureMeta{}, runErr
	}

	meta := store.CaptureMeta{
		ID:              id,
		Mode:            string(res.Mode),
		Format:          string(res.Format),
		Ext:             res.Format.Ext(),
		Width:           res.ViewportWidth,
		Height:          res.ViewportHeight,
		SizeBytes:       res.SizeBytes,
		Frames:          res.Frames,
		DurationSeconds: res.DurationSeconds,
		Partial:         res.Partial,
		SourceDocument:  req.DocumentPath,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Commit(meta, res.OutputPath); err != nil {
		s.broker.Publish(events.Event{Type: events.TypeCaptureFailed, CaptureID: id, Detail: err.Error()})
		return store.CaptureMeta{}, err
	}

	detail := ""
	if runErr != nil {
		detail = runErr.Error()
	}
	s.broker.Publish(events.Event{Type: events.TypeCaptureFinished, CaptureID: id, Detail: detail})
	s.notifyCapture(notify.CaptureEvent{
		CaptureID:       id,
		Status:          "finished",
		Mode:            meta.Mode,
		Format:          meta.Format,
		SizeBytes:       meta.SizeBytes,
		DurationSeconds: meta.DurationSeconds,
		Partial:         meta.Partial,
		Error:           detail,
	})
	s.journalRecord(journal.Record{
		CaptureID:       id,
		Status:          "finished",
		Mode:            meta.Mode,
		Format:          meta.Format,
		SizeBytes:       meta.SizeBytes,
		Frames:          meta.Frames,
		DurationSeconds: meta.DurationSeconds,
		Partial:         meta.Partial,
		SourceDocument:  req.DocumentPath,
		Error:           detail,
	})
	return meta, runErr
}

// List returns all stored captures, newest first.
func (s *Service) List(ctx context.Context) ([]store.CaptureMeta, error) {
	return s.store.List()
}

// Get returns one capture's metadata.
func (s *Service) Get(ctx context.Context, id string) (store.CaptureMeta, error) {
	return s.store.Get(id)
}

// ReadArtifact returns the artifact bytes and metadata for streaming.
func (s *Service) ReadArtifact(ctx context.Context, id string) ([]byte, store.CaptureMeta, error) {
	return s.store.ReadArtifact(id)
}

// Delete removes a stored capture and announces the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.broker.Publish(events.Event{Type: events.TypeCaptureDeleted, CaptureID: id})
	return nil
}

// Events exposes the lifecycle broker for transports to subscribe on.
func (s *Service) Events() *events.Broker {
	return s.broker
}

// Health reports whether the capture dependencies are usable.
type Health struct {
	BrowserPath    string `json:"browser_path,omitempty"`
	BrowserOK      bool   `json:"browser_ok"`
	FFmpegPath     string `json:"ffmpeg_path,omitempty"`
	ConversionOK   bool   `json:"conversion_ok"`
	StoredCaptures int    `json:"stored_captures"`
	EventsClients  int    `json:"events_clients"`
	BrowserError   string `json:"browser_error,omitempty"`
	ConversionHint string `json:"conversion_hint,omitempty"`
}

// CheckHealth probes the browser binary and the conversion tool without
// launching either.
func (s *Service) CheckHealth(ctx context.Context) Health {
	h := Health{}

	path, err := browser.Detect(s.chromePath)
	if err != nil {
		h.BrowserError = err.Error()
	} else {
		h.BrowserPath = path
		h.BrowserOK = true
	}

	if s.finalizer != nil {
		if p, ok := s.finalizer.FFmpegAvailable(); ok {
			h.FFmpegPath = p
			h.ConversionOK = true
		} else {
			h.ConversionHint = "recordings will be preserved in the native container"
		}
	}

	if metas, err := s.store.List(); err == nil {
		h.StoredCaptures = len(metas)
	}
	h.EventsClients = s.broker.ClientCount()
	return h
}

// IsDegraded reports whether err is the conversion-unavailable outcome, a
// success that delivered the native container instead of the requested one.
func IsDegraded(err error) bool {
	var coded *capture.CodedError
	return errors.As(err, &coded) && coded.Code == capture.CodeConversionUnavailable
}

func (s *Service) journalRecord(rec journal.Record) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Write(rec); err != nil {
		slog.Debug("journal record dropped", "capture_id", rec.CaptureID, "error", err)
	}
}

func (s *Service) notifyCapture(evt notify.CaptureEvent) {
	if s.notifyEndpoint == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notify.SendCapture(ctx, s.httpClient, s.notifyEndpoint, evt); err != nil {
			slog.Debug("capture webhook failed", "endpoint", s.notifyEndpoint, "error", err)
		}
	}()
}

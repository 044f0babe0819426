package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/pagecast/internal/capture"
	"github.com/dgnsrekt/pagecast/internal/events"
	"github.com/dgnsrekt/pagecast/internal/service"
	"github.com/dgnsrekt/pagecast/internal/store"
)

// Service is the capture daemon surface exposed over HTTP.
type Service interface {
	Capture(ctx context.Context, req service.Request) (store.CaptureMeta, error)
	List(ctx context.Context) ([]store.CaptureMeta, error)
	Get(ctx context.Context, id string) (store.CaptureMeta, error)
	ReadArtifact(ctx context.Context, id string) ([]byte, store.CaptureMeta, error)
	Delete(ctx context.Context, id string) error
	Events() *events.Broker
	CheckHealth(ctx context.Context) service.Health
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Pagecast Capture API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/api/v1/events", eventsHandler(svc.Events()))

	registerCaptureHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrInvalidID) {
		return huma.Error400BadRequest(err.Error())
	}
	if errors.Is(err, store.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	var coded *capture.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case capture.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case capture.CodeDocumentNotFound:
			return huma.Error404NotFound(coded.Message)
		case capture.CodeNavigationFailed:
			return huma.Error504GatewayTimeout(coded.Message)
		case capture.CodeBrowserLaunchFailed:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}

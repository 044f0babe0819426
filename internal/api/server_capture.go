package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/pagecast/internal/capture"
	"github.com/dgnsrekt/pagecast/internal/service"
	"github.com/dgnsrekt/pagecast/internal/store"
)

func contentTypeFor(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "mp4":
		return "video/mp4"
	case "mjpeg":
		return "video/x-motion-jpeg"
	}
	return "application/octet-stream"
}

func registerCaptureHandlers(api huma.API, svc Service) {
	type captureBody struct {
		DocumentPath    string   `json:"document_path" doc:"Path to the HTML document to capture"`
		Mode            string   `json:"mode" enum:"still,recording" doc:"Capture mode"`
		Format          string   `json:"format,omitempty" enum:"png,jpeg,mp4,mjpeg" doc:"Output format (defaults by mode)"`
		DurationSeconds *float64 `json:"duration_seconds,omitempty" doc:"Recording length in seconds (required for recordings)"`
		ViewportWidth   int      `json:"viewport_width,omitempty" doc:"Viewport width in pixels"`
		ViewportHeight  int      `json:"viewport_height,omitempty" doc:"Viewport height in pixels"`
	}
	type captureOutput struct {
		Body struct {
			Capture  store.CaptureMeta `json:"capture"`
			URL      string            `json:"url"`
			Degraded bool              `json:"degraded,omitempty"`
			Warning  string            `json:"warning,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "create-capture",
		Method:      http.MethodPost,
		Path:        "/api/v1/captures",
		Summary:     "Capture an HTML document",
		Tags:        []string{"Captures"},
	}, func(ctx context.Context, input *struct{ Body captureBody }) (*captureOutput, error) {
		meta, err := svc.Capture(ctx, service.Request{
			DocumentPath:    input.Body.DocumentPath,
			Mode:            capture.Mode(input.Body.Mode),
			Format:          capture.Format(input.Body.Format),
			DurationSeconds: input.Body.DurationSeconds,
			ViewportWidth:   input.Body.ViewportWidth,
			ViewportHeight:  input.Body.ViewportHeight,
		})
		if err != nil && !service.IsDegraded(err) {
			return nil, mapErr(err)
		}
		out := &captureOutput{}
		out.Body.Capture = meta
		out.Body.URL = "/api/v1/captures/" + meta.ID + "/artifact"
		if err != nil {
			out.Body.Degraded = true
			out.Body.Warning = err.Error()
		}
		return out, nil
	})

	type listOutput struct {
		Body struct {
			Captures []store.CaptureMeta `json:"captures"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-captures",
		Method:      http.MethodGet,
		Path:        "/api/v1/captures",
		Summary:     "List captures",
		Tags:        []string{"Captures"},
	}, func(ctx context.Context, input *struct{}) (*listOutput, error) {
		metas, err := svc.List(ctx)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &listOutput{}
		out.Body.Captures = metas
		if out.Body.Captures == nil {
			out.Body.Captures = []store.CaptureMeta{}
		}
		return out, nil
	})

	type captureIDInput struct {
		CaptureID string `path:"capture_id"`
	}
	type getCaptureOutput struct {
		Body store.CaptureMeta
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-capture-metadata",
		Method:      http.MethodGet,
		Path:        "/api/v1/captures/{capture_id}/metadata",
		Summary:     "Get capture metadata",
		Tags:        []string{"Captures"},
	}, func(ctx context.Context, input *captureIDInput) (*getCaptureOutput, error) {
		meta, err := svc.Get(ctx, input.CaptureID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &getCaptureOutput{}
		out.Body = meta
		return out, nil
	})

	type artifactOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-capture-artifact",
		Method:      http.MethodGet,
		Path:        "/api/v1/captures/{capture_id}/artifact",
		Summary:     "Download the capture artifact",
		Tags:        []string{"Captures"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Capture artifact",
				Content: map[string]*huma.MediaType{
					"application/octet-stream": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *captureIDInput) (*artifactOutput, error) {
		data, meta, err := svc.ReadArtifact(ctx, input.CaptureID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &artifactOutput{ContentType: contentTypeFor(meta.Format), Body: data}, nil
	})

	type deleteCaptureOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "delete-capture",
		Method:      http.MethodDelete,
		Path:        "/api/v1/captures/{capture_id}",
		Summary:     "Delete capture",
		Tags:        []string{"Captures"},
	}, func(ctx context.Context, input *captureIDInput) (*deleteCaptureOutput, error) {
		if err := svc.Delete(ctx, input.CaptureID); err != nil {
			return nil, mapErr(err)
		}
		out := &deleteCaptureOutput{}
		out.Body.Status = "deleted"
		return out, nil
	})

	type healthOutput struct {
		Body service.Health
	}
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Daemon health and capture capabilities",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body = svc.CheckHealth(ctx)
		return out, nil
	})
}

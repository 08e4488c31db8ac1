package response

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/middlemark/middlemark/pkg/errorbank"
)

// Builder helps construct consistent HTTP responses. Success payloads are
// the DTO's own fields merged with an "ok" flag; errors carry the error
// taxonomy kind and resolve their status from it.
type Builder struct {
	ctx      echo.Context
	status   int
	data     any
	err      error
	warnings []string
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithWarnings appends soft warnings to a success response.
func (b *Builder) WithWarnings(warnings []string) *Builder {
	if len(warnings) > 0 {
		b.warnings = append(b.warnings, warnings...)
	}
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}

	payload := map[string]any{"ok": true}
	if b.data != nil {
		raw, err := json.Marshal(b.data)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		for k, v := range fields {
			payload[k] = v
		}
	}
	if len(b.warnings) > 0 {
		payload["warnings"] = b.warnings
	}

	return b.ctx.JSON(b.status, payload)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	payload := struct {
		OK    bool `json:"ok"`
		Error struct {
			Kind    string         `json:"kind"`
			Message string         `json:"message"`
			Details map[string]any `json:"details,omitempty"`
		} `json:"error"`
	}{}
	payload.Error.Kind = string(appErr.Kind())
	payload.Error.Message = appErr.Message()
	payload.Error.Details = appErr.Details()

	return b.ctx.JSON(status, payload)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/pkg/errorbank"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	e := NewEcho(config.Config{}, nil, zap.NewNop())

	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		var body map[string]bool
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s decode: %v", path, err)
		}
		if !body["ok"] {
			t.Errorf("%s body = %s", path, rec.Body.String())
		}
	}
}

func TestErrorHandlerRendersAppErrors(t *testing.T) {
	t.Parallel()

	e := NewEcho(config.Config{}, nil, zap.NewNop())
	e.GET("/boom", func(c echo.Context) error {
		return errorbank.Forbidden("release token mismatch")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var body struct {
		OK    bool `json:"ok"`
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OK || body.Error.Kind != "forbidden" || body.Error.Message != "release token mismatch" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestCommon(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(Common(logging.NewWithWriter(io.Discard, "error"), []string{"http://localhost:3000"}, nil)...)
	e.POST("/echo", func(c echo.Context) error {
		_, err := io.Copy(io.Discard, c.Request().Body)
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name string
		size int
		want int
	}{
		{"small", 10, http.StatusNoContent},
		{"too_large", 2 << 20, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", tt.size)))
			req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
			assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}

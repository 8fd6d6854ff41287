package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, incoming string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, Value(c), FromContext(c.Request.Context()))
		c.String(http.StatusOK, Value(c))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(Header, incoming)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareGeneratesID(t *testing.T) {
	w := serve(t, "")
	generated := w.Header().Get(Header)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())
}

func TestMiddlewareKeepsWellFormedID(t *testing.T) {
	w := serve(t, "lb-7f3a:01.2")
	assert.Equal(t, "lb-7f3a:01.2", w.Header().Get(Header))
	assert.Equal(t, "lb-7f3a:01.2", w.Body.String())
}

func TestMiddlewareReplacesUnsafeID(t *testing.T) {
	for _, bad := range []string{"has space", "line\nbreak", `quote"`, strings.Repeat("a", 65)} {
		w := serve(t, bad)
		got := w.Header().Get(Header)
		assert.NotEqual(t, bad, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, bad)
	}
}

func TestFromContextEmpty(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}

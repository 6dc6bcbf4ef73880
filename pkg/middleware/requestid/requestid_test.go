package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareReusesCallerID(t *testing.T) {
	rec, seen := serve("scanner-42")
	assert.Equal(t, "scanner-42", seen)
	assert.Equal(t, "scanner-42", rec.Header().Get(headerKey))
}

func TestMiddlewareGeneratesID(t *testing.T) {
	for _, header := range []string{"", "has space", strings.Repeat("x", maxLength+1)} {
		rec, seen := serve(header)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, header)
		assert.Equal(t, seen, rec.Header().Get(headerKey))
	}
}

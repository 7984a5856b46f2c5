package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestServerHealth(t *testing.T) {
	srv := NewServer(&ServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logging.Discard(),
		GracefulShutdownDuration: time.Second,
	}, gin.New())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	srv.Drain()
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
	assert.Equal(t, http.StatusOK, get("/livez").Code)
	assert.Equal(t, http.StatusNotFound, get("/nope").Code)
}

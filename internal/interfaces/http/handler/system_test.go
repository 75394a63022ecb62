package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func serveSystem(h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.GET(path, h)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("resepku", "1.2.3", nil)

	w := serveSystem(h.GetSystemInfo, "/system/info")
	require.Equal(t, http.StatusOK, w.Code)

	info := decodeData[SystemInfoResponse](t, w)
	assert.Equal(t, "resepku", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("resepku", "dev", nil)

	w := serveSystem(h.Ping, "/system/ping")
	require.Equal(t, http.StatusOK, w.Code)

	pong := decodeData[PingResponse](t, w)
	assert.Equal(t, "pong", pong.Message)
	_, err := time.Parse(time.RFC3339, pong.Timestamp)
	assert.NoError(t, err)
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		h := NewSystemHandler("resepku", "dev", stubPinger{})
		w := serveSystem(h.Health, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeData[HealthResponse](t, w).Status)
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler("resepku", "dev", stubPinger{err: errors.New("connection refused")})
		w := serveSystem(h.Health, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"success":false,"data":{"status":"unhealthy","database":"disconnected"}}`, w.Body.String())
	})

	t.Run("no database configured", func(t *testing.T) {
		h := NewSystemHandler("resepku", "dev", nil)
		w := serveSystem(h.Health, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newLoggedRouter(level slog.Level) (*gin.Engine, *bytes.Buffer) {
	var logBuffer bytes.Buffer
	testLogger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: level}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(testLogger))
	return router, &logBuffer
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestDetails", func(t *testing.T) {
		router, logBuffer := newLoggedRouter(slog.LevelInfo)
		router.GET("/bills/:id/split", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/bills/b1/split?param=value", nil)
		req.Header.Set("User-Agent", "test-agent")
		testCorrelationID := uuid.New().String()
		req.Header.Set(CorrelationIDHeader, testCorrelationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"path":"/bills/b1/split?param=value"`)
		assert.Contains(t, logOutput, `"route":"/bills/:id/split"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"latency":`)
		assert.Contains(t, logOutput, `"client_ip":`)
		assert.Contains(t, logOutput, `"user_agent":"test-agent"`)
		assert.Contains(t, logOutput, `"correlation_id":"`+testCorrelationID+`"`)
	})

	t.Run("ClientErrorLogsAtWarn", func(t *testing.T) {
		router, logBuffer := newLoggedRouter(slog.LevelInfo)
		router.POST("/splits/equal", func(c *gin.Context) {
			c.Status(http.StatusUnprocessableEntity)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/splits/equal", nil))

		assert.Contains(t, logBuffer.String(), `"level":"WARN"`)
		assert.Contains(t, logBuffer.String(), `"status":422`)
	})

	t.Run("ServerErrorLogsAtErrorWithGinErrors", func(t *testing.T) {
		router, logBuffer := newLoggedRouter(slog.LevelInfo)
		router.GET("/boom", func(c *gin.Context) {
			_ = c.Error(errors.New("store unavailable"))
			c.Status(http.StatusInternalServerError)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"ERROR"`)
		assert.Contains(t, logOutput, `"errors":"store unavailable"`)
		assert.Contains(t, logOutput, `"correlation_id":`)
	})

	t.Run("HealthIsQuietAtInfo", func(t *testing.T) {
		router, logBuffer := newLoggedRouter(slog.LevelInfo)
		router.GET("/health", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, logBuffer.String())
	})

	t.Run("FailingHealthIsStillLogged", func(t *testing.T) {
		router, logBuffer := newLoggedRouter(slog.LevelInfo)
		router.GET("/health", func(c *gin.Context) {
			c.Status(http.StatusServiceUnavailable)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Contains(t, logBuffer.String(), `"status":503`)
	})
}

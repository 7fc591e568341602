package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabsplit/internal/api_gateway/handler"
	"github.com/tabsplit/internal/api_gateway/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	splitHandler *handler.SplitHandler,
	paymentHandler *handler.PaymentHandler,
	streamHandler *handler.StreamHandler,
	gatherer prometheus.Gatherer,
	checks map[string]HealthCheck,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		splits := v1.Group("/splits")
		{
			splits.POST("/equal", splitHandler.Equal)
			splits.POST("/custom", splitHandler.Custom)
			splits.POST("/items", splitHandler.Items)
			splits.POST("/tip", splitHandler.Tip)
			splits.POST("/validate", splitHandler.Validate)
			splits.POST("/execute", splitHandler.Execute)
		}

		bills := v1.Group("/bills/:id")
		{
			bills.GET("/split", splitHandler.GetSplit)
			bills.DELETE("/split", splitHandler.Cancel)
			bills.GET("/progress", splitHandler.GetProgress)
			bills.GET("/history", splitHandler.GetHistory)

			payments := bills.Group("/payments")
			{
				payments.POST("/started", paymentHandler.Started)
				payments.POST("/completed", paymentHandler.Completed)
				payments.POST("/failed", paymentHandler.Failed)
			}
		}

		v1.GET("/rooms/:room/events", streamHandler.Events)
	}

	r.GET("/health", healthHandler(checks))
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// healthHandler answers 200 when every check passes and 503 otherwise
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results, "timestamp": time.Now().UTC()})
	}
}

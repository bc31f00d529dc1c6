package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveWebSockets is the gauge of currently open feed WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumen_websocket_connections_active",
		Help: "Number of active WebSocket connections",
	})

	// RedisErrors counts Redis command errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// MediaUploadAttempts counts object storage upload attempts by outcome.
	MediaUploadAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_media_upload_attempts_total",
		Help: "Total number of media upload attempts by outcome",
	}, []string{"outcome"})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request-level Prometheus middleware handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}

package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics collector. fiberprometheus registers
// its collectors on the default registry, so it is built once and shared across apps.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware exposes /metrics on app and records request metrics for every route.
func MetricsMiddleware(app *fiber.App, serviceName string) fiber.Handler {
	p := InitMetrics(serviceName)
	p.RegisterAt(app, "/metrics")
	return p.Middleware
}

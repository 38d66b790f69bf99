package httpapi

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-warehouse-api/internal/store"
	"github.com/i474232898/weather-warehouse-api/internal/weather"
)

const serviceName = "weather-warehouse-api"

// recentWindow is how far back /health looks when counting failed probes.
const recentWindow = 15 * time.Minute

// Readiness reports the state of the warehouse handle.
type Readiness interface {
	Ready() bool
	Attempts() int
}

// Deps groups what the routes need. Probes and Metrics are optional.
type Deps struct {
	Service   *weather.Service
	Readiness Readiness
	Probes    *store.MemoryStore
	Metrics   fiber.Handler
}

// MetricsHandler adapts a net/http handler (promhttp) for fiber.
func MetricsHandler(h http.Handler) fiber.Handler {
	return adaptor.HTTPHandler(h)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/weather", func(c *fiber.Ctx) error {
		cols, err := deps.Service.Forecast(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(cols)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		wh := fiber.Map{
			"table": deps.Service.Table().String(),
		}
		if deps.Readiness != nil {
			wh["ready"] = deps.Readiness.Ready()
			wh["attempts"] = deps.Readiness.Attempts()
		}
		if deps.Probes != nil {
			var last *store.ProbeResult
			if latest, err := deps.Probes.Latest(); err == nil {
				last = &latest
			}
			wh["lastProbe"] = last
			wh["recentFailures"] = deps.Probes.FailuresSince(time.Now().Add(-recentWindow))
		}

		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   serviceName,
			"warehouse": wh,
		})
	})

	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics)
	}
}

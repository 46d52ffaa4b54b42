package observability

import (
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeOnce    sync.Once
	scrapeHandler http.Handler
)

// MetricsHandler serves the request, mutation, cache and feed collectors.
// A collector that fails to gather does not blank the rest of the scrape.
func MetricsHandler() fiber.Handler {
	scrapeOnce.Do(func() {
		RegisterMetrics()
		scrapeHandler = promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer,
			promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
				ErrorHandling:     promhttp.ContinueOnError,
				EnableOpenMetrics: true,
			}),
		)
	})
	return adaptor.HTTPHandler(scrapeHandler)
}

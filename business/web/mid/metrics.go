package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of collectors updated by the middleware. They are served by the
// debug mux through the default registry.
var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of requests handled by route.",
	}, []string{"method", "route"})

	failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Number of requests that returned an error by route.",
	}, []string{"method", "route"})

	panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Number of panics recovered by the middleware.",
	})
)

// Metrics updates program counters. The route label is the registered
// pattern, not the request path.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			var route string
			if v, err := web.GetValues(ctx); err == nil {
				route = v.Route
			}

			// Call the next handler.
			err := handler(ctx, w, r)

			requests.WithLabelValues(r.Method, route).Inc()
			if err != nil {
				failures.WithLabelValues(r.Method, route).Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}

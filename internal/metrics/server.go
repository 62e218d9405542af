package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the default registry. It is mounted at /metrics on the API
// router rather than on a dedicated port.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics has prometheus metric variables/functions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDecode = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partly_decode_total",
			Help: "Multipart decodes and results.",
		},
		[]string{
			"result", // ok, truncated, toodeep, badfield
		},
	)
	metricDecodeFieldSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partly_decode_field_skips_total",
			Help: "Malformed header fields skipped during permissive decoding.",
		},
	)
)

// DecodeInc tracks the result of a decode.
func DecodeInc(result string) {
	metricDecode.WithLabelValues(result).Inc()
}

// DecodeFieldSkipInc tracks a malformed header field that was skipped instead
// of aborting the decode.
func DecodeFieldSkipInc() {
	metricDecodeFieldSkips.Inc()
}

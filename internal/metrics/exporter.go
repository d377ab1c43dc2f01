package metrics

import (
	"fmt"
	"strings"
)

// Export renders a snapshot in a plain "name{labels} value" text format.
func Export(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "amadeus_uptime_seconds %.0f\n", s.Uptime.Seconds())
	fmt.Fprintf(&b, "amadeus_gateway_connected %d\n", boolToInt(s.Connected))
	fmt.Fprintf(&b, "amadeus_gateway_connects_total %d\n", s.Connects)
	fmt.Fprintf(&b, "amadeus_events_total %d\n", s.Events)
	fmt.Fprintf(&b, "amadeus_events_per_second %.2f\n", s.EventsPerSecond)

	for _, h := range s.Handlers {
		fmt.Fprintf(&b, "amadeus_handler_calls_total{kind=%q} %d\n", h.Kind, h.Calls)
		fmt.Fprintf(&b, "amadeus_handler_errors_total{kind=%q} %d\n", h.Kind, h.Errors)
		fmt.Fprintf(&b, "amadeus_handler_panics_total{kind=%q} %d\n", h.Kind, h.Panics)
		fmt.Fprintf(&b, "amadeus_handler_latency_avg_ms{kind=%q} %.3f\n", h.Kind, float64(h.Latency.Avg)/1e6)
		fmt.Fprintf(&b, "amadeus_handler_latency_max_ms{kind=%q} %.3f\n", h.Kind, float64(h.Latency.Max)/1e6)
	}
	return b.String()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

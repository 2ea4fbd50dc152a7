package metrics

// NullMetrics discards all metrics operations; useful in tests and when
// metrics are disabled.
type NullMetrics struct{}

func (n *NullMetrics) Register(name string, metricType string) {}
func (n *NullMetrics) IncrementCounter(name string)            {}
func (n *NullMetrics) Gauge(name string, val float64)          {}
func (n *NullMetrics) Histogram(name string, obs float64)      {}

package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow recorder interface the API
// handlers depend on, so handlers can be tested without a registry.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsAdd(model string, n int) {
	w.m.Predictions.WithLabelValues(model).Add(float64(n))
}

func (w *MetricsWrapper) FailuresInc(model string) {
	w.m.PredictionFailures.WithLabelValues(model).Inc()
}

func (w *MetricsWrapper) ValidationFailuresInc(model string) {
	w.m.ValidationFailures.WithLabelValues(model).Inc()
}

func (w *MetricsWrapper) LatencyObserve(model string, seconds float64) {
	w.m.PredictionLatency.WithLabelValues(model).Observe(seconds)
}

func (w *MetricsWrapper) BatchSizeObserve(n int) {
	w.m.BatchSize.Observe(float64(n))
}

func (w *MetricsWrapper) ModelAgeSet(model string, seconds float64) {
	w.m.ModelAge.WithLabelValues(model).Set(seconds)
}

func (w *MetricsWrapper) StreamConnectionsAdd(delta float64) {
	w.m.StreamConnections.Add(delta)
}

func (w *MetricsWrapper) AuditWriteErrorsInc() {
	w.m.AuditWriteErrors.Inc()
}

func (w *MetricsWrapper) RequestObserve(path, method string, code int, seconds float64) {
	w.m.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(path).Observe(seconds)
}

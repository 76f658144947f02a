package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Shell command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Target lifecycle metrics
	Activations    *prometheus.CounterVec
	TargetsReady   prometheus.Gauge
	PowerSwitches  *prometheus.CounterVec
	CaptureBytes   *prometheus.CounterVec
	CaptureRotates *prometheus.CounterVec

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boardlab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_commands_total",
				Help: "Total number of shell commands executed",
			},
			[]string{"target", "outcome"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boardlab_command_duration_seconds",
				Help:    "Shell command round-trip duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"target"},
		),

		Activations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_activations_total",
				Help: "Total number of shell activation attempts",
			},
			[]string{"target", "status"},
		),
		TargetsReady: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "boardlab_targets_ready",
				Help: "Number of targets with an activated shell",
			},
		),
		PowerSwitches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_power_switches_total",
				Help: "Total number of power control operations",
			},
			[]string{"target", "op"},
		),
		CaptureBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_capture_bytes_total",
				Help: "Total console bytes captured",
			},
			[]string{"target"},
		),
		CaptureRotates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_capture_rotations_total",
				Help: "Total capture file rotations",
			},
			[]string{"target"},
		),

		ScriptRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_script_runs_total",
				Help: "Total number of script executions",
			},
			[]string{"status"},
		),
		ScriptDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boardlab_script_duration_seconds",
				Help:    "Script execution duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120},
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "boardlab_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boardlab_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "boardlab_uptime_seconds",
				Help: "Daemon uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCommand records one shell command round-trip. outcome is "ok",
// "failed" (non-zero or unknown status), or "error" (transport/timeout).
func (m *Metrics) RecordCommand(target, outcome string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(target, outcome).Inc()
	m.CommandDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordActivation records one activation attempt
func (m *Metrics) RecordActivation(target, status string) {
	m.Activations.WithLabelValues(target, status).Inc()
}

// SetTargetsReady sets the number of activated targets
func (m *Metrics) SetTargetsReady(count int) {
	m.TargetsReady.Set(float64(count))
}

// RecordPowerSwitch records one power control operation
func (m *Metrics) RecordPowerSwitch(target, op string) {
	m.PowerSwitches.WithLabelValues(target, op).Inc()
}

// RecordScript records one script execution
func (m *Metrics) RecordScript(status string, duration time.Duration) {
	m.ScriptRuns.WithLabelValues(status).Inc()
	m.ScriptDuration.Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

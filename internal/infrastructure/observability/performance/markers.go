// Package performance provides lightweight markers for timing pipeline
// operations and reporting them to the metrics registry.
package performance

import (
	"time"

	"github.com/AtRiskMedia/tractstack-storyblok/internal/infrastructure/observability/metrics"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"` // e.g., "pipeline:build", "pipeline:pass"
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	Completed bool           `json:"completed"`
}

// Start begins a marker for operation.
func Start(operation string) *Marker {
	return &Marker{Operation: operation, StartTime: time.Now(), Success: true}
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// Complete marks the operation as finished and records its duration
func (m *Marker) Complete() {
	if m.Completed {
		return
	}

	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true

	result := "ok"
	if !m.Success {
		result = "error"
	}
	metrics.OperationDuration.WithLabelValues(m.Operation, result).Observe(m.Duration.Seconds())
}

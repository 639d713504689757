package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommandLatency = "command_latency"
	MeasurementRun            = "run"
)

// WriteCommandLatency records how long one back-end took to complete a
// command. verb is the opcode with its color or slot suffix removed.
func (c *Client) WriteCommandLatency(backend, class, verb string, d time.Duration) {
	c.WritePoint(MeasurementCommandLatency,
		map[string]string{
			"backend": backend,
			"class":   class,
			"verb":    verb,
		},
		map[string]any{
			"duration_ms": float64(d.Microseconds()) / 1000,
		})
}

// WriteRun records a finished run.
func (c *Client) WriteRun(kind, status string, total, completed int) {
	c.WritePoint(MeasurementRun,
		map[string]string{
			"kind":   kind,
			"status": status,
		},
		map[string]any{
			"total":     total,
			"completed": completed,
		})
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

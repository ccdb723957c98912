package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommandsTotal    = "isetdb.commands.total"
	metricCommandDuration  = "isetdb.command.duration.seconds"
	metricErrorsTotal      = "isetdb.errors.total"
	metricInflightCommands = "isetdb.inflight.commands"

	attrOp     = "op"
	attrStatus = "status"
)

// Status labels for RecordCommand.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 10µs to 1s; every command is a local
// in-memory tree operation.
var durationBucketBoundaries = []float64{
	0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
}

// CommandMetrics holds the OTel instruments for Rate, Error, Duration
// metrics over store commands.
type CommandMetrics struct {
	commandsTotal    metric.Int64Counter
	commandDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightCommands metric.Int64UpDownCounter
}

// NewCommandMetrics creates the command metric instruments from the meter.
func NewCommandMetrics(mt metric.Meter) (*CommandMetrics, error) {
	cmdTotal, err := mt.Int64Counter(metricCommandsTotal,
		metric.WithDescription("Total number of executed commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommandsTotal, err)
	}

	cmdDuration, err := mt.Float64Histogram(metricCommandDuration,
		metric.WithDescription("Command duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommandDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed commands"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightCommands,
		metric.WithDescription("Number of in-flight commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightCommands, err)
	}

	return &CommandMetrics{
		commandsTotal:    cmdTotal,
		commandDuration:  cmdDuration,
		errorsTotal:      errTotal,
		inflightCommands: inflight,
	}, nil
}

// RecordCommand records a completed command with its operation, status, and
// duration.
func (cm *CommandMetrics) RecordCommand(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	cm.commandsTotal.Add(ctx, 1, attrs)
	cm.commandDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		cm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns the matching
// decrement.
func (cm *CommandMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	cm.inflightCommands.Add(ctx, 1, attrs)

	return func() {
		cm.inflightCommands.Add(ctx, -1, attrs)
	}
}

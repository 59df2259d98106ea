package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// High cardinality attributes (user ids, task ids, URLs, file paths, error
// messages) must never be added as span attributes that feed metrics. Only
// bounded sets are safe: platform names, operation types, status values,
// component names. High-cardinality data belongs in logs and span status.

// InstrumentedFunc represents a function that can be instrumented.
type InstrumentedFunc func(ctx context.Context) error

// InstrumentOperation instruments a generic operation with telemetry.
func (t *Telemetry) InstrumentOperation(ctx context.Context, operationName, component string, fn InstrumentedFunc) error {
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}

	start := time.Now()
	ctx, span := t.tracer.Start(ctx, operationName)

	defer span.End()

	span.SetAttributes(
		attribute.String("component", component),
		attribute.String("operation", operationName),
	)

	err := fn(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"

		span.SetAttributes(attribute.Bool("error", true))
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration_seconds", duration.Seconds()),
	)

	return err
}

// InstrumentDBOperation instruments database operations.
func (t *Telemetry) InstrumentDBOperation(ctx context.Context, operation string, fn InstrumentedFunc) error {
	if t == nil {
		return fn(ctx)
	}

	start := time.Now()
	err := t.InstrumentOperation(ctx, "db_"+operation, "database", fn)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.RecordDBOperation(operation, status, duration)

	return err
}

// InstrumentFetch instruments a platform fetch.
func (t *Telemetry) InstrumentFetch(ctx context.Context, platform string, fn InstrumentedFunc) error {
	if t == nil {
		return fn(ctx)
	}

	err := t.InstrumentOperation(ctx, "fetch", "fetcher", func(ctx context.Context) error {
		ctx, span := t.tracer.Start(ctx, "fetch_"+platform)
		defer span.End()

		span.SetAttributes(attribute.String("fetch.platform", platform))

		return fn(ctx)
	})

	status := "success"
	if err != nil {
		status = "error"
	}

	t.RecordFetch(platform, status)

	return err
}

// InstrumentTask instruments a full task execution, tracking the active
// task gauge and recording the terminal outcome.
func (t *Telemetry) InstrumentTask(ctx context.Context, platform string, fn InstrumentedFunc) error {
	if t == nil {
		return fn(ctx)
	}

	start := time.Now()

	t.IncrementActiveTasks()
	defer t.DecrementActiveTasks()

	err := t.InstrumentOperation(ctx, "task", "dispatcher", fn)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.RecordTask(platform, status, time.Since(start))

	return err
}

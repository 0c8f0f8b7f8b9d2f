package stepgraph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/deepnoodle-ai/stepgraph"

// telemetry holds the span and metric instruments used while tracing steps.
// Instruments are created on first use; a failure to create one only
// disables that instrument.
type telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	metricsOnce   sync.Once
	stepLatency   metric.Float64Histogram
	stepSuccesses metric.Int64Counter
	stepFailures  metric.Int64Counter
	stepTokens    metric.Int64Counter
	activeSteps   metric.Int64UpDownCounter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, logger *slog.Logger) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return &telemetry{
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
		logger: logger,
	}
}

func (t *telemetry) initMetrics() {
	t.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		t.stepLatency, err = t.meter.Float64Histogram("stepgraph_step_duration_seconds",
			metric.WithDescription("Time spent in each traced unit of work"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "step_latency: "+err.Error())
		}

		t.stepSuccesses, err = t.meter.Int64Counter("stepgraph_step_success_total",
			metric.WithDescription("Number of traced steps that succeeded"),
		)
		if err != nil {
			initErrors = append(initErrors, "step_successes: "+err.Error())
		}

		t.stepFailures, err = t.meter.Int64Counter("stepgraph_step_failure_total",
			metric.WithDescription("Number of traced steps that failed"),
		)
		if err != nil {
			initErrors = append(initErrors, "step_failures: "+err.Error())
		}

		t.stepTokens, err = t.meter.Int64Counter("stepgraph_step_tokens_total",
			metric.WithDescription("Tokens reported by traced steps"),
		)
		if err != nil {
			initErrors = append(initErrors, "step_tokens: "+err.Error())
		}

		t.activeSteps, err = t.meter.Int64UpDownCounter("stepgraph_active_steps",
			metric.WithDescription("Number of units of work currently running"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_steps: "+err.Error())
		}

		if len(initErrors) > 0 {
			t.logger.Error("failed to initialize some step metrics",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// startStep opens the span for one unit of work. The returned function must
// be called once the step record is final.
func (t *telemetry) startStep(ctx context.Context, work Work, ref StepRef) (context.Context, func(*Step)) {
	t.initMetrics()

	ctx, span := t.tracer.Start(ctx, "stepgraph.Trace",
		trace.WithAttributes(
			attribute.String("stepgraph.function", work.Name),
			attribute.String("stepgraph.checkpoint_id", ref.CheckpointID),
			attribute.String("stepgraph.step_id", ref.StepID),
		),
	)
	if t.activeSteps != nil {
		t.activeSteps.Add(ctx, 1)
	}

	return ctx, func(step *Step) {
		defer span.End()
		if t.activeSteps != nil {
			t.activeSteps.Add(ctx, -1)
		}

		attrs := metric.WithAttributes(attribute.String("function", step.FunctionName))
		if t.stepLatency != nil {
			t.stepLatency.Record(ctx, step.Duration.Seconds(), attrs)
		}
		span.SetAttributes(
			attribute.String("stepgraph.status", string(step.Status)),
			attribute.String("stepgraph.output_type", step.OutputType),
			attribute.Float64("stepgraph.duration_seconds", step.Duration.Round(time.Microsecond).Seconds()),
		)
		if step.Cost != nil {
			span.SetAttributes(attribute.Int("stepgraph.total_tokens", step.Cost.Total()))
			if t.stepTokens != nil {
				t.stepTokens.Add(ctx, int64(step.Cost.Total()), attrs)
			}
		}

		if step.Status == StepStatusError {
			if t.stepFailures != nil {
				t.stepFailures.Add(ctx, 1, attrs)
			}
			span.RecordError(step.Error)
			span.SetStatus(codes.Error, step.Error.Message)
			return
		}
		if t.stepSuccesses != nil {
			t.stepSuccesses.Add(ctx, 1, attrs)
		}
		span.SetStatus(codes.Ok, "")
	}
}

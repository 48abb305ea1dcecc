// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/fieldbook/fieldbook/internal/idempotent"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
	// ExportInterval defaults to one minute.
	ExportInterval time.Duration
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
}

// New creates a meter. When enabled it installs an SDK meter provider that
// pushes to the OTLP endpoint from the standard OTEL_EXPORTER_* variables.
// When disabled it returns a no-op meter and leaves the global provider
// untouched.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{meter: noop.NewMeterProvider().Meter(serviceName)}, nil
	}

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.ExportInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
	}
	return newWithReader(ctx, sdkmetric.NewPeriodicReader(exporter, readerOpts...), serviceName)
}

func newWithReader(ctx context.Context, reader sdkmetric.Reader, serviceName string) (*Meter, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return &Meter{meter: provider.Meter(serviceName), provider: provider}, nil
}

// NewWithMeter wraps an existing meter.
func NewWithMeter(m metric.Meter) *Meter {
	return &Meter{meter: m}
}

// Shutdown flushes pending measurements.
func (m *Meter) Shutdown(ctx context.Context) error {
	if m.provider != nil {
		return m.provider.Shutdown(ctx)
	}
	return nil
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// IdempotencyObserver counts get-or-create outcomes per resource and
// records how long each call took.
type IdempotencyObserver struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

// NewIdempotencyObserver registers the fieldbook.idempotent.outcomes counter
// and the fieldbook.idempotent.duration histogram.
func NewIdempotencyObserver(m *Meter) (*IdempotencyObserver, error) {
	c, err := m.CreateCounter("fieldbook.idempotent.outcomes", "Outcomes of idempotent create-or-get operations")
	if err != nil {
		return nil, err
	}
	h, err := m.CreateHistogram("fieldbook.idempotent.duration", "Latency of idempotent create-or-get operations", "s")
	if err != nil {
		return nil, err
	}
	return &IdempotencyObserver{outcomes: c, duration: h}, nil
}

// Observe implements idempotent.Observer.
func (o *IdempotencyObserver) Observe(ctx context.Context, resource string, outcome idempotent.Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("outcome", string(outcome)),
	)
	o.outcomes.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}

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

// Package idempotent implements the get-or-create protocol used by every
// operation that must converge on exactly one row per natural key.
//
// The protocol is:
//
//  1. Look the record up by its natural key. If found, return it.
//  2. Otherwise insert it; the storage uniqueness constraint arbitrates races.
//  3. On success, run the creation hook exactly once and return the record.
//  4. On a uniqueness violation, look up once more and return what is there.
//     A second miss is an internal error. There is no further retry.
//
// No in-process locking is used; several server instances may race on the
// same key and the store decides the winner.
package idempotent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fieldbook/fieldbook/internal/observability/logger"
	"github.com/fieldbook/fieldbook/internal/store"
)

var tracer = otel.Tracer("github.com/fieldbook/fieldbook/internal/idempotent")

// ErrRaceUnresolved means an insert lost a uniqueness race but the winning
// row could not be read back. It indicates a missing constraint or broken
// visibility in the store.
var ErrRaceUnresolved = errors.New("idempotent: uniqueness violation but no row visible on re-read")

// Outcome describes how a call converged.
type Outcome string

const (
	// OutcomeCreated means this call inserted the row.
	OutcomeCreated Outcome = "created"
	// OutcomeExisting means the first lookup found the row.
	OutcomeExisting Outcome = "existing"
	// OutcomeRaceRecovered means the insert lost a race and the re-read found the winner.
	OutcomeRaceRecovered Outcome = "race_recovered"
)

// Result is the record a call converged on plus whether this call created it.
type Result[T any] struct {
	Value   T
	Created bool
	Outcome Outcome
}

// Spec describes one get-or-create call.
type Spec[T any] struct {
	// Resource names the record type for logs, spans and metrics.
	Resource string

	// Lookup reads the record by natural key and returns store.ErrNotFound
	// when it is absent.
	Lookup func(ctx context.Context) (T, error)

	// Insert writes the record and returns store.ErrUniqueViolation when the
	// natural key is already taken.
	Insert func(ctx context.Context) (T, error)

	// OnCreate runs once, only after this call's Insert succeeded.
	OnCreate func(ctx context.Context, created T)
}

// Observer receives one notification per successful call, with the time
// the call took.
type Observer interface {
	Observe(ctx context.Context, resource string, outcome Outcome, elapsed time.Duration)
}

// Manager carries the optional collaborators of the protocol. A nil
// *Manager is valid and observes nothing.
type Manager struct {
	observer Observer
	logger   *slog.Logger
}

// NewManager creates a new manager
func NewManager(observer Observer, l *slog.Logger) *Manager {
	if l == nil {
		l = slog.Default()
	}
	return &Manager{observer: observer, logger: l}
}

func (m *Manager) observe(ctx context.Context, resource string, outcome Outcome, elapsed time.Duration) {
	if m == nil || m.observer == nil {
		return
	}
	m.observer.Observe(ctx, resource, outcome, elapsed)
}

func (m *Manager) log() *slog.Logger {
	if m == nil || m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// GetOrCreate runs the protocol described in the package documentation.
// Authorization must have been performed by the caller.
func GetOrCreate[T any](ctx context.Context, m *Manager, s Spec[T]) (Result[T], error) {
	ctx, span := tracer.Start(ctx, "idempotent.GetOrCreate")
	defer span.End()
	span.SetAttributes(attribute.String("idempotent.resource", s.Resource))

	start := time.Now()
	res, err := getOrCreate(ctx, m, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get-or-create failed")
		return res, err
	}

	span.SetAttributes(attribute.String("idempotent.outcome", string(res.Outcome)))
	m.observe(ctx, s.Resource, res.Outcome, time.Since(start))
	return res, nil
}

func getOrCreate[T any](ctx context.Context, m *Manager, s Spec[T]) (Result[T], error) {
	var zero Result[T]

	existing, err := s.Lookup(ctx)
	if err == nil {
		return Result[T]{Value: existing, Outcome: OutcomeExisting}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return zero, fmt.Errorf("failed to look up %s: %w", s.Resource, err)
	}

	created, err := s.Insert(ctx)
	if err == nil {
		if s.OnCreate != nil {
			s.OnCreate(ctx, created)
		}
		return Result[T]{Value: created, Created: true, Outcome: OutcomeCreated}, nil
	}
	if !errors.Is(err, store.ErrUniqueViolation) {
		return zero, fmt.Errorf("failed to insert %s: %w", s.Resource, err)
	}

	// Another caller won between lookup and insert.
	winner, err := s.Lookup(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.log().ErrorContext(ctx, "uniqueness violation without visible row",
				logger.Resource(s.Resource),
				logger.Outcome("race_unresolved"),
			)
			return zero, fmt.Errorf("%s: %w", s.Resource, ErrRaceUnresolved)
		}
		return zero, fmt.Errorf("failed to re-read %s after conflict: %w", s.Resource, err)
	}

	m.log().WarnContext(ctx, "recovered from concurrent create",
		logger.Resource(s.Resource),
		logger.Outcome(string(OutcomeRaceRecovered)),
	)
	return Result[T]{Value: winner, Outcome: OutcomeRaceRecovered}, nil
}

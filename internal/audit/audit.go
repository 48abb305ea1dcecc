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

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fieldbook/fieldbook/internal/observability/logger"
)

// Entity types
const (
	EntityProject       = "PROJECT"
	EntityProjectMember = "PROJECT_MEMBER"
	EntityDailyReport   = "DAILY_REPORT"
	EntityFile          = "FILE"
	EntityUser          = "USER"
	EntityCompany       = "COMPANY"
)

// Actions
const (
	ActionCreated     = "CREATED"
	ActionUpdated     = "UPDATED"
	ActionArchived    = "ARCHIVED"
	ActionSubmitted   = "SUBMITTED"
	ActionApproved    = "APPROVED"
	ActionUploaded    = "UPLOADED"
	ActionMemberAdded = "MEMBER_ADDED"
	ActionRoleChanged = "ROLE_CHANGED"
)

// Event is an append-only audit record. Metadata is opaque to the core and
// is never decoded here.
type Event struct {
	ID         string
	TenantID   string
	ActorID    string
	ProjectID  *string
	EntityType string
	EntityID   string
	Action     string
	Metadata   json.RawMessage
	Timestamp  time.Time
}

// Logger records audit events. Implementations must not panic or block the
// caller on failure; they swallow and log their own errors.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Metadata marshals v into an opaque payload. It returns nil when v cannot
// be encoded; audit metadata is best-effort.
func Metadata(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func stamp(event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger. A nil logger uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l.With(logger.Component("audit"))}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	event = stamp(event)

	attrs := []slog.Attr{
		logger.TenantID(event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("entity_type", event.EntityType),
		logger.EntityID(event.EntityID),
		slog.String("action", event.Action),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.ProjectID != nil {
		attrs = append(attrs, logger.ProjectID(*event.ProjectID))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.String("metadata", string(event.Metadata)))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, "AUDIT_EVENT", attrs...)
}

// StoreLogger writes events to a Store. Write failures are logged and
// dropped; they never reach the caller.
type StoreLogger struct {
	store  Store
	logger *slog.Logger
}

// NewStoreLogger creates a new store-backed audit logger
func NewStoreLogger(store Store, l *slog.Logger) *StoreLogger {
	if l == nil {
		l = slog.Default()
	}
	return &StoreLogger{store: store, logger: l.With(logger.Component("audit"))}
}

// Log appends the event to the store.
func (l *StoreLogger) Log(ctx context.Context, event Event) {
	event = stamp(event)

	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "audit store panicked",
				slog.Any("panic", r),
				slog.String("entity_type", event.EntityType),
				logger.EntityID(event.EntityID),
			)
		}
	}()

	if err := l.store.Append(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "failed to write audit event",
			logger.Error(err),
			logger.TenantID(event.TenantID),
			slog.String("entity_type", event.EntityType),
			logger.EntityID(event.EntityID),
			slog.String("action", event.Action),
		)
	}
}

// MultiLogger fans an event out to several loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that forwards to every non-nil logger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log forwards the event to each logger in order.
func (m *MultiLogger) Log(ctx context.Context, event Event) {
	event = stamp(event)
	for _, l := range m.loggers {
		l.Log(ctx, event)
	}
}

// NopLogger discards events.
type NopLogger struct{}

// Log discards the event.
func (NopLogger) Log(context.Context, Event) {}

// Copyright 2025 Tom Barlow
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

package fileop

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AuditEntry records a single file operation.
type AuditEntry struct {
	Timestamp   time.Time
	Operation   Op
	Source      string
	Destination string
	Result      string // "success" or "error"
	Kind        string // if Result == "error"
	Error       string // if Result == "error"
	Duration    time.Duration
}

// AuditLogger logs file operations.
type AuditLogger interface {
	Log(entry AuditEntry)
}

// SlogAuditLogger implements AuditLogger using slog.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger that uses slog.
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	return &SlogAuditLogger{logger: logger}
}

// Log writes an audit entry.
func (l *SlogAuditLogger) Log(entry AuditEntry) {
	if l.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", string(entry.Operation)),
		slog.String("source", entry.Source),
		slog.String("result", entry.Result),
		slog.Duration("duration", entry.Duration),
	}
	if entry.Destination != "" {
		attrs = append(attrs, slog.String("destination", entry.Destination))
	}
	if entry.Kind != "" {
		attrs = append(attrs, slog.String("kind", entry.Kind))
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}

	ctx := context.Background()
	if entry.Result == "error" {
		l.logger.LogAttrs(ctx, slog.LevelWarn, "file operation failed", attrs...)
	} else {
		l.logger.LogAttrs(ctx, slog.LevelDebug, "file operation completed", attrs...)
	}
}

// NoopAuditLogger discards entries.
type NoopAuditLogger struct{}

// Log does nothing.
func (NoopAuditLogger) Log(AuditEntry) {}

// Instrumented wraps an Adapter with metrics and audit logging.
type Instrumented struct {
	next  Adapter
	audit AuditLogger
	now   func() time.Time
}

var _ Adapter = (*Instrumented)(nil)

// Instrument wraps next. A nil audit logger disables auditing.
func Instrument(next Adapter, audit AuditLogger) *Instrumented {
	if audit == nil {
		audit = NoopAuditLogger{}
	}
	return &Instrumented{next: next, audit: audit, now: time.Now}
}

// Copy implements Adapter.
func (i *Instrumented) Copy(ctx context.Context, source, destination string, opts Options) error {
	return i.observe(OpCopy, source, destination, func() error {
		return i.next.Copy(ctx, source, destination, opts)
	})
}

// Move implements Adapter.
func (i *Instrumented) Move(ctx context.Context, source, destination string, opts Options) error {
	return i.observe(OpMove, source, destination, func() error {
		return i.next.Move(ctx, source, destination, opts)
	})
}

// Rename implements Adapter.
func (i *Instrumented) Rename(ctx context.Context, source, destination string, opts Options) error {
	return i.observe(OpRename, source, destination, func() error {
		return i.next.Rename(ctx, source, destination, opts)
	})
}

// Remove implements Adapter.
func (i *Instrumented) Remove(ctx context.Context, path string, opts Options) error {
	return i.observe(OpRemove, path, "", func() error {
		return i.next.Remove(ctx, path, opts)
	})
}

func (i *Instrumented) observe(op Op, source, destination string, fn func() error) error {
	start := i.now()
	err := fn()
	elapsed := i.now().Sub(start)

	entry := AuditEntry{
		Timestamp:   start,
		Operation:   op,
		Source:      source,
		Destination: destination,
		Result:      "success",
		Duration:    elapsed,
	}

	var kind string
	if err != nil {
		kind = "InternalError"
		var opErr *Error
		if errors.As(err, &opErr) {
			kind = opErr.Kind()
		}
		entry.Result = "error"
		entry.Kind = kind
		entry.Error = err.Error()
	}

	recordMetrics(op, elapsed.Seconds(), kind)
	i.audit.Log(entry)
	return err
}

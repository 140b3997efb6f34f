package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warning"
	LevelError Level = "error"
)

// Sink records operational events. Record must never block the caller.
type Sink interface {
	Record(level Level, message string, data map[string]any)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(Level, string, map[string]any) {}

type event struct {
	level   Level
	message string
	data    map[string]any
}

// EventSink queues events on a bounded buffer and emits each one as a log
// line and a span from a single background goroutine. Events are dropped
// when the buffer is full.
type EventSink struct {
	events chan event
	tracer trace.Tracer
	logger *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewEventSink(tracer trace.Tracer, logger *slog.Logger, bufferSize int) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	s := &EventSink{
		events: make(chan event, bufferSize),
		tracer: tracer,
		logger: logger.With("component", "telemetry"),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *EventSink) Record(level Level, message string, data map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.events <- event{level: level, message: message, data: data}:
	default:
		s.logger.Warn("event buffer full, dropping event", "message", message)
	}
}

// Close stops accepting events and waits for queued ones to be emitted.
func (s *EventSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		s.wg.Wait()
	})
}

func (s *EventSink) run() {
	defer s.wg.Done()
	for e := range s.events {
		s.emit(e)
	}
}

func (s *EventSink) emit(e event) {
	attrs := make([]any, 0, len(e.data)*2)
	spanAttrs := make([]attribute.KeyValue, 0, len(e.data)+1)
	spanAttrs = append(spanAttrs, attribute.String("event.level", string(e.level)))
	for k, v := range e.data {
		attrs = append(attrs, k, v)
		spanAttrs = append(spanAttrs, attribute.String(k, fmt.Sprint(v)))
	}

	switch e.level {
	case LevelError:
		s.logger.Error(e.message, attrs...)
	case LevelWarn:
		s.logger.Warn(e.message, attrs...)
	default:
		s.logger.Info(e.message, attrs...)
	}

	if s.tracer == nil {
		return
	}
	_, span := s.tracer.Start(context.Background(), "event."+string(e.level))
	span.SetAttributes(spanAttrs...)
	span.AddEvent(e.message)
	if e.level == LevelError {
		span.SetStatus(codes.Error, e.message)
	}
	span.End()
}

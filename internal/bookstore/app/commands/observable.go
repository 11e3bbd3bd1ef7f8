package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Command is implemented by every command so the observable wrapper can name and describe it.
type Command interface {
	Name() string
	Attributes() []attribute.KeyValue
}

// Handler executes a single command type.
type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Recorder is called after every handled command with its outcome.
type Recorder[C Command, R any] func(ctx context.Context, cmd C, result R, elapsed time.Duration, err error)

type ObservableHandler[C Command, R any] struct {
	handler Handler[C, R]
	logger  *slog.Logger
	record  Recorder[C, R]
}

func NewObservableHandler[C Command, R any](handler Handler[C, R], logger *slog.Logger, record Recorder[C, R]) *ObservableHandler[C, R] {
	return &ObservableHandler[C, R]{
		handler: handler,
		logger:  logger,
		record:  record,
	}
}

func (o *ObservableHandler[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	ctx, span := telemetry.StartSpan(ctx, cmd.Name()+".Handle")
	defer span.End()

	attrs := cmd.Attributes()
	telemetry.AddSpanAttributes(span, attrs...)
	logArgs := logAttributes(attrs)

	o.logger.InfoContext(ctx, "handling command", append([]any{"command", cmd.Name()}, logArgs...)...)

	start := time.Now()
	result, err := o.handler.Handle(ctx, cmd)
	if o.record != nil {
		o.record(ctx, cmd, result, time.Since(start), err)
	}

	if err != nil {
		telemetry.RecordSpanError(span, err)
		level := slog.LevelError
		if isClientError(err) {
			level = slog.LevelWarn
		}
		o.logger.Log(ctx, level, "command failed",
			append([]any{"command", cmd.Name(), "error", err}, logArgs...)...,
		)
		return result, err
	}

	o.logger.InfoContext(ctx, "command succeeded", append([]any{"command", cmd.Name()}, logArgs...)...)
	telemetry.SetSpanSuccess(span)

	return result, nil
}

func isClientError(err error) bool {
	return errors.Is(err, ports.ErrInvalidArgument) ||
		errors.Is(err, ports.ErrNotFound) ||
		errors.Is(err, ports.ErrConflict) ||
		errors.Is(err, ports.ErrEmptyCart)
}

func logAttributes(attrs []attribute.KeyValue) []any {
	args := make([]any, 0, len(attrs))
	for _, kv := range attrs {
		args = append(args, slog.Any(string(kv.Key), kv.Value.AsInterface()))
	}
	return args
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckHealth(t *testing.T) {
	t.Run("applies a deadline to the ping", func(t *testing.T) {
		var deadline time.Time
		err := CheckHealth(context.Background(), pingerFunc(func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		}))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if deadline.IsZero() {
			t.Error("expected ping context to carry a deadline")
		}
	})

	t.Run("returns ping failures", func(t *testing.T) {
		want := errors.New("connection refused")
		err := CheckHealth(context.Background(), pingerFunc(func(context.Context) error { return want }))
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got: %v", want, err)
		}
	})
}

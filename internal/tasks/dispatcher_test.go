package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/shared"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher(t *testing.T) {
	t.Run("Runs Jobs", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 2, 4, nil)
		defer d.Shutdown(context.Background())

		err := d.Submit("t1", func(ctx context.Context) error {
			registry.Update("t1", statusUpdate(Finished, models.TaskCompleted, 100, "done").Patch)
			return nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		waitFor(t, func() bool {
			rec, _ := registry.Get("t1")
			return rec.Status == models.TaskCompleted
		})
	})

	t.Run("Task Is Pollable Before It Starts", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 1, 4, nil)

		block := make(chan struct{})
		_ = d.Submit("busy", func(ctx context.Context) error { <-block; return nil })
		_ = d.Submit("queued", func(ctx context.Context) error { return nil })

		rec, ok := registry.Get("queued")
		if !ok || rec.Status != models.TaskProcessing || rec.Message != "Initializing..." {
			t.Errorf("expected queued task registered, got %+v (ok=%v)", rec, ok)
		}

		close(block)
		if err := d.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})

	t.Run("Queue Full", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 1, 1, nil)

		started := make(chan struct{})
		block := make(chan struct{})
		_ = d.Submit("running", func(ctx context.Context) error {
			close(started)
			<-block
			return nil
		})
		<-started

		if err := d.Submit("queued", func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("expected room for one queued job: %v", err)
		}

		err := d.Submit("rejected", func(ctx context.Context) error { return nil })
		if !errors.Is(err, shared.ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}

		rec, ok := registry.Get("rejected")
		if !ok || rec.Status != models.TaskError || rec.Message != "Server busy, try again later" {
			t.Errorf("expected rejected task marked busy, got %+v", rec)
		}

		close(block)
		_ = d.Shutdown(context.Background())
	})

	t.Run("Panicking Job", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 1, 1, nil)
		defer d.Shutdown(context.Background())

		_ = d.Submit("boom", func(ctx context.Context) error { panic("nil map") })

		waitFor(t, func() bool {
			rec, _ := registry.Get("boom")
			return rec.Status == models.TaskError
		})
	})

	t.Run("Shutdown", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 1, 1, nil)

		cancelled := make(chan struct{})
		started := make(chan struct{})
		_ = d.Submit("long", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		})
		<-started

		if err := d.Shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}

		select {
		case <-cancelled:
		default:
			t.Error("running job should observe cancellation before shutdown returns")
		}

		if err := d.Submit("late", func(ctx context.Context) error { return nil }); !errors.Is(err, shared.ErrPoolShutdown) {
			t.Errorf("expected ErrPoolShutdown, got %v", err)
		}
		if err := d.Shutdown(context.Background()); err != nil {
			t.Errorf("second shutdown should be a no-op, got %v", err)
		}
	})

	t.Run("Shutdown Deadline", func(t *testing.T) {
		registry := NewRegistry(nil)
		d := NewDispatcher(context.Background(), registry, 1, 1, nil)

		block := make(chan struct{})
		defer close(block)
		started := make(chan struct{})
		_ = d.Submit("stuck", func(ctx context.Context) error {
			close(started)
			<-block
			return nil
		})
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := d.Shutdown(ctx); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

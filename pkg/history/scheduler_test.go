package history

import (
	"context"
	"testing"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "daily", schedule: "0 3 * * *", wantRunning: true},
		{name: "hourly", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule stays idle", schedule: ""},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(&fakeStore{}, config.RetentionConfig{Days: 30, Schedule: tt.schedule})
			scheduler := NewScheduler(pruner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			next := scheduler.NextRun()
			if tt.wantRunning {
				if next == nil {
					t.Fatal("NextRun() = nil for running scheduler")
				}
				if !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			} else if next != nil {
				t.Errorf("NextRun() = %v, want nil", next)
			}

			scheduler.Stop()
			if scheduler.IsRunning() {
				t.Error("IsRunning() = true after Stop()")
			}
		})
	}
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	pruner := NewPruner(&fakeStore{}, config.RetentionConfig{Schedule: "@every 1h"})
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunPruning(t *testing.T) {
	store := &fakeStore{excessN: 7}
	pruner := NewPruner(store, config.RetentionConfig{MaxRuns: 5})
	scheduler := NewScheduler(pruner)

	var got int64
	scheduler.OnPrune(func(deleted int64, err error) {
		if err != nil {
			t.Errorf("prune error = %v", err)
		}
		got = deleted
	})

	scheduler.runPruning(context.Background())

	if got != 7 {
		t.Errorf("OnPrune deleted = %d, want 7", got)
	}
}

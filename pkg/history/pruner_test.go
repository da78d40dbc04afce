package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

type fakeStore struct {
	cutoff     time.Time
	keep       int64
	beforeN    int64
	excessN    int64
	beforeErr  error
	calledKeep bool
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.beforeN, f.beforeErr
}

func (f *fakeStore) DeleteExcess(_ context.Context, keep int64) (int64, error) {
	f.keep = keep
	f.calledKeep = true
	return f.excessN, nil
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		cfg        config.RetentionConfig
		store      *fakeStore
		want       int64
		wantCutoff time.Time
		wantExcess bool
		wantErr    bool
	}{
		{
			name:       "age and count",
			cfg:        config.RetentionConfig{Days: 30, MaxRuns: 100},
			store:      &fakeStore{beforeN: 3, excessN: 2},
			want:       5,
			wantCutoff: now.AddDate(0, 0, -30),
			wantExcess: true,
		},
		{
			name:  "disabled",
			cfg:   config.RetentionConfig{},
			store: &fakeStore{beforeN: 3, excessN: 2},
			want:  0,
		},
		{
			name:       "count only",
			cfg:        config.RetentionConfig{MaxRuns: 10},
			store:      &fakeStore{excessN: 4},
			want:       4,
			wantExcess: true,
		},
		{
			name:    "age failure stops pruning",
			cfg:     config.RetentionConfig{Days: 1, MaxRuns: 10},
			store:   &fakeStore{beforeErr: errors.New("disk I/O error")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(tt.store, tt.cfg)
			p.now = func() time.Time { return now }

			got, err := p.Prune(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Prune() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Prune() = %d, want %d", got, tt.want)
			}
			if !tt.wantCutoff.IsZero() && !tt.store.cutoff.Equal(tt.wantCutoff) {
				t.Errorf("cutoff = %v, want %v", tt.store.cutoff, tt.wantCutoff)
			}
			if tt.store.calledKeep != tt.wantExcess {
				t.Errorf("DeleteExcess called = %v, want %v", tt.store.calledKeep, tt.wantExcess)
			}
			if tt.wantExcess && tt.store.keep != tt.cfg.MaxRuns {
				t.Errorf("keep = %d, want %d", tt.store.keep, tt.cfg.MaxRuns)
			}
		})
	}
}

func TestPruner_SQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old1", "old2", "new1", "new2", "new3"} {
		started := now.AddDate(0, 0, -60)
		if i >= 2 {
			started = now.Add(-time.Duration(i) * time.Hour)
		}
		if err := store.Record(ctx, testRun(id, "default", started, 0)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	p := NewPruner(store, config.RetentionConfig{Days: 30, MaxRuns: 2})
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("Prune() = %d, want 3", deleted)
	}

	runs, err := store.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new1" || runs[1].ID != "new2" {
		t.Errorf("remaining runs = %v", runs)
	}
}

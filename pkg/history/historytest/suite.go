// Package historytest holds behaviour tests shared by every
// history.Repository implementation.
package historytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charlie0129/camexpo/pkg/exposure"
	"github.com/charlie0129/camexpo/pkg/history"
)

// Run exercises repo. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) history.Repository) {
	t.Run("latest on empty", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Latest(context.Background(), "patio")
		if !errors.Is(err, history.ErrNotFound) {
			t.Errorf("Latest() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("save and read back", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		b := 187.5
		rec := &history.Record{
			Cycle:      "3f1c2a9e-7b7d-4a51-9d0e-2f6f0c1b8a11",
			Camera:     "patio",
			TakenAt:    time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			File:       "patio/20240601_100000.jpg",
			Brightness: &b,
			Before:     exposure.State{Tier: exposure.TierManual, Gain: 5},
			After:      exposure.State{Tier: exposure.TierManual, Gain: 4},
			Outcome:    history.OutcomeOK,
		}
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if rec.ID == 0 {
			t.Fatal("expected ID to be set after save")
		}

		got, err := repo.Latest(ctx, "patio")
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if got.ID != rec.ID || got.Cycle != rec.Cycle || got.File != rec.File || got.Before != rec.Before || got.After != rec.After {
			t.Errorf("Latest() = %+v, want %+v", got, rec)
		}
		if got.Brightness == nil || *got.Brightness != b {
			t.Errorf("Latest().Brightness = %v, want %v", got.Brightness, b)
		}
		if !got.TakenAt.Equal(rec.TakenAt) {
			t.Errorf("Latest().TakenAt = %v, want %v", got.TakenAt, rec.TakenAt)
		}
		if !got.Changed() {
			t.Error("Changed() = false, want true")
		}
	})

	t.Run("list newest first per camera", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 5; i++ {
			for _, cam := range []string{"patio", "garage"} {
				rec := &history.Record{
					Camera:  cam,
					TakenAt: base.Add(time.Duration(i) * 10 * time.Second),
					Outcome: history.OutcomeCaptureFailed,
					Error:   "boom",
				}
				if err := repo.Save(ctx, rec); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}
		}

		got, err := repo.List(ctx, "patio", 3)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List() returned %d records, want 3", len(got))
		}
		for i, rec := range got {
			if rec.Camera != "patio" {
				t.Errorf("record %d camera = %q", i, rec.Camera)
			}
			if rec.Brightness != nil {
				t.Errorf("record %d brightness = %v, want nil", i, *rec.Brightness)
			}
			if i > 0 && !rec.TakenAt.Before(got[i-1].TakenAt) {
				t.Errorf("records not ordered newest first: %v then %v", got[i-1].TakenAt, rec.TakenAt)
			}
		}

		all, err := repo.List(ctx, "garage", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 5 {
			t.Errorf("List() with no limit returned %d, want 5", len(all))
		}
	})

	t.Run("delete older than", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now()

		for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
			rec := &history.Record{Camera: "patio", TakenAt: now.Add(-age), Outcome: history.OutcomeOK}
			if err := repo.Save(ctx, rec); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		n, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("DeleteOlderThan() error = %v", err)
		}
		if n != 2 {
			t.Errorf("DeleteOlderThan() = %d, want 2", n)
		}

		left, err := repo.List(ctx, "patio", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(left) != 1 {
			t.Errorf("%d records left, want 1", len(left))
		}
	})
}

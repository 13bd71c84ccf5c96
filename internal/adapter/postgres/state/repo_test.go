package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/state"
	"github.com/sthar2820/Job-Application-Tracker/internal/adapter/postgres/testhelper"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

func TestRepo_SetAndGet(t *testing.T) {
	t.Parallel()
	repo := state.New(testhelper.SetupTestDB(t))
	ctx := context.Background()

	key := "test-key-" + uuid.NewString()

	if _, err := repo.Get(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(ctx, key, "first"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "first" {
		t.Errorf("Get = %q, want %q", got, "first")
	}

	// Upsert overwrites.
	if err := repo.Set(ctx, key, "second"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got != "second" {
		t.Errorf("Get = %q, want %q", got, "second")
	}
}

func TestRepo_GetTime_MissingIsZero(t *testing.T) {
	t.Parallel()
	repo := state.New(testhelper.SetupTestDB(t))

	got, err := repo.GetTime(context.Background(), "missing-"+uuid.NewString())
	if err != nil {
		t.Fatalf("GetTime(missing): %v", err)
	}
	if !got.IsZero() {
		t.Errorf("GetTime(missing) = %v, want zero time", got)
	}
}

func TestRepo_SetTimeRoundTrip(t *testing.T) {
	t.Parallel()
	repo := state.New(testhelper.SetupTestDB(t))
	ctx := context.Background()

	key := "checkpoint-" + uuid.NewString()
	want := time.Date(2026, time.August, 20, 12, 34, 56, 789000000, time.UTC)

	if err := repo.SetTime(ctx, key, want); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	got, err := repo.GetTime(ctx, key)
	if err != nil {
		t.Fatalf("GetTime: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("GetTime = %v, want %v", got, want)
	}
}

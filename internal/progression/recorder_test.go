package progression_test

import (
	"errors"
	"testing"
	"time"

	"github.com/openlms/progression/internal/progression"
)

func TestRecorder_RecordActivity_ChapterView(t *testing.T) {
	store := progression.NewMemoryStore()
	rec := progression.NewRecorder(testCatalog(), store)
	ctx := t.Context()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := rec.RecordActivity(ctx, progression.ActivityInput{
		LearnerID: learnerA,
		BlockID:   block1,
		ChapterID: chapter1a,
		Kind:      progression.KindView,
		At:        at,
	})
	if err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}

	events, err := store.ProgressEvents(ctx, learnerA, block1)
	if err != nil {
		t.Fatalf("ProgressEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ChapterID != chapter1a {
		t.Errorf("ChapterID = %q, want %q", events[0].ChapterID, chapter1a)
	}
}

func TestRecorder_RecordActivity_RepeatedViewIsIdempotent(t *testing.T) {
	store := progression.NewMemoryStore()
	rec := progression.NewRecorder(testCatalog(), store)
	ctx := t.Context()

	in := progression.ActivityInput{
		LearnerID: learnerA,
		BlockID:   block1,
		ChapterID: chapter1a,
		Kind:      progression.KindComplete,
		At:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 3; i++ {
		in.At = in.At.Add(time.Hour)
		if err := rec.RecordActivity(ctx, in); err != nil {
			t.Fatalf("RecordActivity() #%d error = %v", i+1, err)
		}
	}

	events, _ := store.ProgressEvents(ctx, learnerA, block1)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if !events[0].LastTouchedAt.After(events[0].FirstViewedAt) {
		t.Error("repeat views should advance LastTouchedAt")
	}
}

func TestRecorder_RecordActivity_MinutesOnly(t *testing.T) {
	store := progression.NewMemoryStore()
	rec := progression.NewRecorder(testCatalog(), store)
	ctx := t.Context()

	at := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	err := rec.RecordActivity(ctx, progression.ActivityInput{
		LearnerID:    learnerA,
		BlockID:      block1,
		MinutesDelta: 12,
		At:           at,
	})
	if err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}

	entries, err := store.TimeEntries(ctx, learnerA, block1)
	if err != nil {
		t.Fatalf("TimeEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Minutes != 12 {
		t.Fatalf("entries = %+v, want one row with 12 minutes", entries)
	}

	events, _ := store.ProgressEvents(ctx, learnerA, block1)
	if len(events) != 0 {
		t.Errorf("minutes-only input created %d progress events", len(events))
	}
}

func TestRecorder_RecordActivity_Invalid(t *testing.T) {
	rec := progression.NewRecorder(testCatalog(), progression.NewMemoryStore())
	ctx := t.Context()

	tests := []struct {
		name    string
		in      progression.ActivityInput
		wantErr error
	}{
		{
			"missing learner",
			progression.ActivityInput{BlockID: block1, ChapterID: chapter1a, Kind: progression.KindView},
			progression.ErrInvalid,
		},
		{
			"missing block",
			progression.ActivityInput{LearnerID: learnerA, ChapterID: chapter1a, Kind: progression.KindView},
			progression.ErrInvalid,
		},
		{
			"negative minutes",
			progression.ActivityInput{LearnerID: learnerA, BlockID: block1, MinutesDelta: -5},
			progression.ErrInvalid,
		},
		{
			"empty payload",
			progression.ActivityInput{LearnerID: learnerA, BlockID: block1},
			progression.ErrInvalid,
		},
		{
			"unknown kind",
			progression.ActivityInput{LearnerID: learnerA, BlockID: block1, ChapterID: chapter1a, Kind: "skim"},
			progression.ErrInvalid,
		},
		{
			"unknown block",
			progression.ActivityInput{LearnerID: learnerA, BlockID: "99999999-0000-0000-0000-000000000009", ChapterID: chapter1a, Kind: progression.KindView},
			progression.ErrNotFound,
		},
		{
			"chapter outside block",
			progression.ActivityInput{LearnerID: learnerA, BlockID: block1, ChapterID: chapter2a, Kind: progression.KindView},
			progression.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rec.RecordActivity(ctx, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordActivity() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

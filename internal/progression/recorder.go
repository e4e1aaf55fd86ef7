package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openlms/progression/internal/catalog"
)

// ActivityKind distinguishes passive chapter views from completions. Both
// mark the chapter as read; the distinction is kept for the event payload.
type ActivityKind string

const (
	KindView     ActivityKind = "view"
	KindComplete ActivityKind = "complete"
)

// ActivityInput is a single learner activity report. ChapterID and
// MinutesDelta are both optional; an input carrying neither is a no-op and
// rejected as invalid.
type ActivityInput struct {
	LearnerID    string
	BlockID      string
	ChapterID    string
	MinutesDelta int
	Kind         ActivityKind
	At           time.Time
}

// Recorder appends chapter reads and study time to the activity log.
type Recorder struct {
	catalog catalog.Catalog
	store   Store
}

// NewRecorder creates a progress recorder over the given catalog and store.
func NewRecorder(cat catalog.Catalog, store Store) *Recorder {
	return &Recorder{catalog: cat, store: store}
}

// RecordActivity records a chapter view/completion and/or a study-time
// delta. Repeated reports for the same chapter only refresh the touch
// timestamp; time deltas always accumulate.
func (r *Recorder) RecordActivity(ctx context.Context, in ActivityInput) error {
	if in.LearnerID == "" {
		return fmt.Errorf("learner id is required: %w", ErrInvalid)
	}
	if in.BlockID == "" {
		return fmt.Errorf("block id is required: %w", ErrInvalid)
	}
	if in.MinutesDelta < 0 {
		return fmt.Errorf("minutes delta %d is negative: %w", in.MinutesDelta, ErrInvalid)
	}
	if in.ChapterID == "" && in.MinutesDelta == 0 {
		return fmt.Errorf("activity carries neither chapter nor minutes: %w", ErrInvalid)
	}
	if in.ChapterID != "" && in.Kind != KindView && in.Kind != KindComplete {
		return fmt.Errorf("unknown activity kind %q: %w", in.Kind, ErrInvalid)
	}
	if in.At.IsZero() {
		in.At = time.Now().UTC()
	}

	if in.ChapterID != "" {
		tree, err := r.catalog.BlockTree(ctx, in.BlockID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("block %s: %w", in.BlockID, ErrNotFound)
			}
			return fmt.Errorf("loading block %s: %w", in.BlockID, err)
		}
		if !tree.HasChapter(in.ChapterID) {
			return fmt.Errorf("chapter %s not in block %s: %w", in.ChapterID, in.BlockID, ErrNotFound)
		}
		if err := r.store.UpsertProgressEvent(ctx, in.LearnerID, in.BlockID, in.ChapterID, in.At); err != nil {
			return err
		}
	}

	if in.MinutesDelta > 0 {
		if err := r.store.AddTime(ctx, in.LearnerID, in.BlockID, in.At, in.MinutesDelta, in.At); err != nil {
			return err
		}
	}
	return nil
}

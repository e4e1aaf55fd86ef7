package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openlms/progression/internal/catalog"
)

// defaultOverdueDays is how long an ungraded submission waits before it is
// flagged overdue. Informational only.
const defaultOverdueDays = 7

// SubmissionView is a submission together with its derived correction state.
type SubmissionView struct {
	Submission CaseStudySubmission `json:"submission"`
	State      SubmissionState     `json:"state"`
}

// Tracker records case study submissions and surfaces their correction
// state. Grading itself happens in an external workflow; the tracker only
// reads the grade fields.
type Tracker struct {
	catalog     catalog.Catalog
	store       Store
	overdueDays int
	now         func() time.Time
}

// NewTracker creates a submission tracker. overdueDays <= 0 falls back to
// the default.
func NewTracker(cat catalog.Catalog, store Store, overdueDays int) *Tracker {
	if overdueDays <= 0 {
		overdueDays = defaultOverdueDays
	}
	return &Tracker{
		catalog:     cat,
		store:       store,
		overdueDays: overdueDays,
		now:         time.Now,
	}
}

// Submit records or replaces the learner's submission for a case study.
// Content stays mutable until a grader scores it; after that the store
// rejects further writes with ErrConflict.
func (t *Tracker) Submit(ctx context.Context, learnerID, caseStudyID, answers string, attachments []string) (*SubmissionView, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id is required: %w", ErrInvalid)
	}
	if answers == "" && len(attachments) == 0 {
		return nil, fmt.Errorf("submission carries neither answers nor attachments: %w", ErrInvalid)
	}

	if _, err := t.catalog.CaseStudyDetail(ctx, caseStudyID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("case study %s: %w", caseStudyID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading case study %s: %w", caseStudyID, err)
	}

	stored, err := t.store.UpsertSubmission(ctx, CaseStudySubmission{
		LearnerID:   learnerID,
		CaseStudyID: caseStudyID,
		Answers:     answers,
		Attachments: attachments,
		SubmittedAt: t.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return &SubmissionView{Submission: stored, State: t.state(&stored)}, nil
}

// GetSubmission returns the learner's submission with its correction state,
// or ErrNotFound when nothing was submitted yet.
func (t *Tracker) GetSubmission(ctx context.Context, learnerID, caseStudyID string) (*SubmissionView, error) {
	if _, err := t.catalog.CaseStudyDetail(ctx, caseStudyID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("case study %s: %w", caseStudyID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading case study %s: %w", caseStudyID, err)
	}

	sub, err := t.store.Submission(ctx, learnerID, caseStudyID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("no submission for case study %s: %w", caseStudyID, ErrNotFound)
	}
	return &SubmissionView{Submission: *sub, State: t.state(sub)}, nil
}

func (t *Tracker) state(sub *CaseStudySubmission) SubmissionState {
	if sub.Graded() {
		return StateGraded
	}
	if t.now().Sub(sub.SubmittedAt) > time.Duration(t.overdueDays)*24*time.Hour {
		return StateOverdue
	}
	return StateUngraded
}

package progression

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/openlms/progression/internal/catalog"
)

// UnitProgress counts completed units of one kind within a block.
type UnitProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// CompletionDetail breaks the percentage down per unit kind. NextCourseID
// points at the first course with an unread chapter, for resuming.
type CompletionDetail struct {
	TotalUnits     int          `json:"total_units"`
	CompletedUnits int          `json:"completed_units"`
	Chapters       UnitProgress `json:"chapters"`
	Quizzes        UnitProgress `json:"quizzes"`
	CaseStudies    UnitProgress `json:"case_studies"`
	NextCourseID   string       `json:"next_course_id,omitempty"`
	MinutesSpent   int          `json:"minutes_spent"`
}

// Completion is a learner's standing in one block. Done is derived purely
// from grade and submission existence, never from the rounded percentage.
type Completion struct {
	Percent int              `json:"percent"`
	Done    bool             `json:"done"`
	Detail  CompletionDetail `json:"detail"`
}

// Calculator derives block completion from the activity and grade log.
type Calculator struct {
	catalog catalog.Catalog
	store   Store
}

// NewCalculator creates a block completion calculator.
func NewCalculator(cat catalog.Catalog, store Store) *Calculator {
	return &Calculator{catalog: cat, store: store}
}

// ComputeCompletion combines chapter reads, finished quiz attempts and case
// study submissions into the block's completion percentage and done flag.
// An empty block reports zero percent and not done.
func (c *Calculator) ComputeCompletion(ctx context.Context, learnerID, blockID string) (*Completion, error) {
	tree, err := c.catalog.BlockTree(ctx, blockID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading block %s: %w", blockID, err)
	}
	return c.computeFromTree(ctx, learnerID, tree)
}

// computeFromTree is the tree-level worker shared with the gating resolver,
// which already holds the trees for a whole program.
func (c *Calculator) computeFromTree(ctx context.Context, learnerID string, tree *catalog.BlockTree) (*Completion, error) {
	chapters := tree.AllChapters()
	quizzes := tree.AllQuizzes()
	caseStudies := tree.AllCaseStudies()

	quizIDs := make([]string, len(quizzes))
	for i, q := range quizzes {
		quizIDs[i] = q.ID
	}
	caseStudyIDs := make([]string, len(caseStudies))
	for i, cs := range caseStudies {
		caseStudyIDs[i] = cs.ID
	}

	events, err := c.store.ProgressEvents(ctx, learnerID, tree.Block.ID)
	if err != nil {
		return nil, fmt.Errorf("loading progress events: %w", err)
	}
	read := make(map[string]bool, len(events))
	for _, ev := range events {
		read[ev.ChapterID] = true
	}

	finished, err := c.store.FinishedQuizzes(ctx, learnerID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("loading finished quizzes: %w", err)
	}
	submitted, err := c.store.SubmittedCaseStudies(ctx, learnerID, caseStudyIDs)
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}
	graded, err := c.store.GradedEvaluations(ctx, learnerID, EvalQuiz, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("loading graded quizzes: %w", err)
	}

	detail := CompletionDetail{
		Chapters:    UnitProgress{Total: len(chapters)},
		Quizzes:     UnitProgress{Total: len(quizzes)},
		CaseStudies: UnitProgress{Total: len(caseStudies)},
	}
	for _, ch := range chapters {
		if read[ch.ID] {
			detail.Chapters.Completed++
		}
	}
	detail.Quizzes.Completed = len(finished)
	detail.CaseStudies.Completed = len(submitted)
	detail.TotalUnits = detail.Chapters.Total + detail.Quizzes.Total + detail.CaseStudies.Total
	detail.CompletedUnits = detail.Chapters.Completed + detail.Quizzes.Completed + detail.CaseStudies.Completed

	for _, course := range tree.Courses {
		for _, ch := range course.Chapters {
			if !read[ch.ID] {
				detail.NextCourseID = course.Course.ID
				break
			}
		}
		if detail.NextCourseID != "" {
			break
		}
	}

	entries, err := c.store.TimeEntries(ctx, learnerID, tree.Block.ID)
	if err != nil {
		return nil, fmt.Errorf("loading time ledger: %w", err)
	}
	for _, e := range entries {
		detail.MinutesSpent += e.Minutes
	}

	percent := 0
	if detail.TotalUnits > 0 {
		percent = int(math.Round(100 * float64(detail.CompletedUnits) / float64(detail.TotalUnits)))
	}

	done := detail.TotalUnits > 0 &&
		len(graded) == len(quizzes) &&
		len(submitted) == len(caseStudies)

	return &Completion{Percent: percent, Done: done, Detail: detail}, nil
}

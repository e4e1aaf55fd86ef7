package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlms/progression/internal/catalog"
)

// BlockStatus is one block's gate and completion standing within a program.
type BlockStatus struct {
	BlockID        string `json:"block_id"`
	SequenceNumber int    `json:"sequence_number"`
	Name           string `json:"name"`
	Percent        int    `json:"percent"`
	Done           bool   `json:"done"`
	Unlocked       bool   `json:"unlocked"`
	NextCourseID   string `json:"next_course_id,omitempty"`
}

// Resolver decides which blocks of a program are unlocked. There is no
// persisted lock state; the gate is recomputed from completion data on
// every read, so it can never drift.
type Resolver struct {
	catalog    catalog.Catalog
	calculator *Calculator
}

// NewResolver creates a gating resolver on top of a completion calculator.
func NewResolver(cat catalog.Catalog, calc *Calculator) *Resolver {
	return &Resolver{catalog: cat, calculator: calc}
}

// ResolveProgram computes completion and gate state for every block of the
// program, in sequence order. The first block is always unlocked; block n
// is unlocked only when every earlier block is done.
func (r *Resolver) ResolveProgram(ctx context.Context, learnerID, programID string) ([]BlockStatus, error) {
	blocks, err := r.catalog.Blocks(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("program %s: %w", programID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading program %s: %w", programID, err)
	}

	statuses := make([]BlockStatus, 0, len(blocks))
	allPriorDone := true
	for i, b := range blocks {
		tree, err := r.catalog.BlockTree(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("loading block %s: %w", b.ID, err)
		}
		completion, err := r.calculator.computeFromTree(ctx, learnerID, tree)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, BlockStatus{
			BlockID:        b.ID,
			SequenceNumber: b.SequenceNumber,
			Name:           b.Name,
			Percent:        completion.Percent,
			Done:           completion.Done,
			Unlocked:       i == 0 || allPriorDone,
			NextCourseID:   completion.Detail.NextCourseID,
		})
		allPriorDone = allPriorDone && completion.Done
	}
	return statuses, nil
}

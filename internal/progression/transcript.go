package progression

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/openlms/progression/internal/catalog"
)

// BlockTranscript is one block's line on the transcript. Averages are nil
// when no graded records exist for that population, never zero.
type BlockTranscript struct {
	BlockID        string   `json:"block_id"`
	SequenceNumber int      `json:"sequence_number"`
	Name           string   `json:"name"`
	LearnerAverage *float64 `json:"learner_average"`
	CohortAverage  *float64 `json:"cohort_average"`
	CohortMax      *float64 `json:"cohort_max"`
	GradedCount    int      `json:"graded_count"`
}

// TranscriptSummary is the overall line: the mean of non-empty per-block
// averages. Blocks without grades are excluded, not counted as zero.
type TranscriptSummary struct {
	LearnerAverage *float64 `json:"learner_average"`
	CohortAverage  *float64 `json:"cohort_average"`
}

// Transcript is a learner's normalized 20-point report for one program.
type Transcript struct {
	LearnerID   string            `json:"learner_id"`
	ProgramID   string            `json:"program_id"`
	ProgramName string            `json:"program_name"`
	PerBlock    []BlockTranscript `json:"per_block"`
	Overall     TranscriptSummary `json:"overall"`
}

// Aggregator builds transcripts from the grade ledger. The cohort is every
// learner with at least one grade row in the program's blocks.
type Aggregator struct {
	catalog catalog.Catalog
	store   Store
}

// NewAggregator creates a transcript aggregator.
func NewAggregator(cat catalog.Catalog, store Store) *Aggregator {
	return &Aggregator{catalog: cat, store: store}
}

// BuildTranscript normalizes every grade to the 20-point scale and computes
// per-block and overall averages for the learner and the cohort. The whole
// grade population is fetched in one read and joined in memory.
func (a *Aggregator) BuildTranscript(ctx context.Context, learnerID, programID string) (*Transcript, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id is required: %w", ErrInvalid)
	}

	program, err := a.catalog.Program(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("program %s: %w", programID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading program %s: %w", programID, err)
	}
	blocks, err := a.catalog.Blocks(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("loading blocks: %w", err)
	}

	blockIDs := make([]string, len(blocks))
	for i, b := range blocks {
		blockIDs[i] = b.ID
	}
	records, err := a.store.GradesByBlocks(ctx, blockIDs)
	if err != nil {
		return nil, fmt.Errorf("loading grade ledger: %w", err)
	}

	// block → learner → normalized grades
	grouped := make(map[string]map[string][]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		byLearner := grouped[rec.BlockID]
		if byLearner == nil {
			byLearner = make(map[string][]float64)
			grouped[rec.BlockID] = byLearner
		}
		byLearner[rec.LearnerID] = append(byLearner[rec.LearnerID], rec.NormalizedGrade())
		if rec.LearnerID == learnerID {
			counts[rec.BlockID]++
		}
	}

	transcript := &Transcript{
		LearnerID:   learnerID,
		ProgramID:   programID,
		ProgramName: program.Name,
		PerBlock:    make([]BlockTranscript, 0, len(blocks)),
	}

	var learnerBlockAvgs, cohortBlockAvgs []float64
	for _, b := range blocks {
		line := BlockTranscript{
			BlockID:        b.ID,
			SequenceNumber: b.SequenceNumber,
			Name:           b.Name,
			GradedCount:    counts[b.ID],
		}

		byLearner := grouped[b.ID]
		if own, ok := byLearner[learnerID]; ok {
			avg := round2(mean(own))
			line.LearnerAverage = &avg
			learnerBlockAvgs = append(learnerBlockAvgs, avg)
		}
		if len(byLearner) > 0 {
			var perLearner []float64
			for _, grades := range byLearner {
				perLearner = append(perLearner, mean(grades))
			}
			avg := round2(mean(perLearner))
			max := round2(maxOf(perLearner))
			line.CohortAverage = &avg
			line.CohortMax = &max
			cohortBlockAvgs = append(cohortBlockAvgs, avg)
		}

		transcript.PerBlock = append(transcript.PerBlock, line)
	}

	if len(learnerBlockAvgs) > 0 {
		overall := round2(mean(learnerBlockAvgs))
		transcript.Overall.LearnerAverage = &overall
	}
	if len(cohortBlockAvgs) > 0 {
		overall := round2(mean(cohortBlockAvgs))
		transcript.Overall.CohortAverage = &overall
	}
	return transcript, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

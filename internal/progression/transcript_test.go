package progression_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openlms/progression/internal/progression"
)

func seedGrade(t *testing.T, store progression.Store, learnerID, blockID string, evalType progression.EvaluationType, evalID string, grade float64, gradeMax, attempt int) {
	t.Helper()
	err := store.UpsertGrade(context.Background(), progression.GradeRecord{
		LearnerID:      learnerID,
		BlockID:        blockID,
		EvaluationType: evalType,
		EvaluationID:   evalID,
		Grade:          grade,
		GradeMax:       gradeMax,
		AttemptNumber:  attempt,
		GradedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertGrade() error = %v", err)
	}
}

func TestAggregator_BuildTranscript_NormalizesAndAverages(t *testing.T) {
	store := progression.NewMemoryStore()
	agg := progression.NewAggregator(testCatalog(), store)

	// Learner A in block 1: 16/20 and 80/100 → normalized 16, 16 → avg 16.
	seedGrade(t, store, learnerA, block1, progression.EvalQuiz, quiz1, 16, 20, 1)
	seedGrade(t, store, learnerA, block1, progression.EvalCaseStudy, caseStudy1, 80, 100, 1)
	// Learner B in block 1: 10/20 → avg 10.
	seedGrade(t, store, learnerB, block1, progression.EvalQuiz, quiz1, 10, 20, 1)

	tr, err := agg.BuildTranscript(t.Context(), learnerA, programID)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}
	if len(tr.PerBlock) != 2 {
		t.Fatalf("per-block lines = %d, want 2", len(tr.PerBlock))
	}

	b1 := tr.PerBlock[0]
	if b1.LearnerAverage == nil || *b1.LearnerAverage != 16 {
		t.Errorf("block 1 learner average = %v, want 16", b1.LearnerAverage)
	}
	if b1.GradedCount != 2 {
		t.Errorf("block 1 graded count = %d, want 2", b1.GradedCount)
	}
	// Cohort: learner averages 16 and 10 → avg 13, max 16.
	if b1.CohortAverage == nil || *b1.CohortAverage != 13 {
		t.Errorf("block 1 cohort average = %v, want 13", b1.CohortAverage)
	}
	if b1.CohortMax == nil || *b1.CohortMax != 16 {
		t.Errorf("block 1 cohort max = %v, want 16", b1.CohortMax)
	}
}

// Blocks with no graded records carry nil averages and are excluded from
// the overall mean, not counted as zero.
func TestAggregator_BuildTranscript_EmptyBlocksExcluded(t *testing.T) {
	store := progression.NewMemoryStore()
	agg := progression.NewAggregator(testCatalog(), store)

	seedGrade(t, store, learnerA, block1, progression.EvalQuiz, quiz1, 14, 20, 1)

	tr, err := agg.BuildTranscript(t.Context(), learnerA, programID)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}

	b2 := tr.PerBlock[1]
	if b2.LearnerAverage != nil || b2.CohortAverage != nil || b2.CohortMax != nil {
		t.Errorf("ungraded block carries averages: %+v", b2)
	}
	// Overall = mean over block 1 only, not (14+0)/2.
	if tr.Overall.LearnerAverage == nil || *tr.Overall.LearnerAverage != 14 {
		t.Errorf("overall learner average = %v, want 14", tr.Overall.LearnerAverage)
	}
}

func TestAggregator_BuildTranscript_NoGradesAtAll(t *testing.T) {
	agg := progression.NewAggregator(testCatalog(), progression.NewMemoryStore())

	tr, err := agg.BuildTranscript(t.Context(), learnerA, programID)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}
	if tr.Overall.LearnerAverage != nil || tr.Overall.CohortAverage != nil {
		t.Errorf("empty ledger produced overall averages: %+v", tr.Overall)
	}
	if len(tr.PerBlock) != 2 {
		t.Errorf("per-block lines = %d, want 2", len(tr.PerBlock))
	}
}

// A learner with no own grades still sees cohort numbers.
func TestAggregator_BuildTranscript_CohortOnly(t *testing.T) {
	store := progression.NewMemoryStore()
	agg := progression.NewAggregator(testCatalog(), store)

	seedGrade(t, store, learnerB, block1, progression.EvalQuiz, quiz1, 12, 20, 1)

	tr, err := agg.BuildTranscript(t.Context(), learnerA, programID)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}
	b1 := tr.PerBlock[0]
	if b1.LearnerAverage != nil {
		t.Errorf("learner average = %v, want nil", b1.LearnerAverage)
	}
	if b1.CohortAverage == nil || *b1.CohortAverage != 12 {
		t.Errorf("cohort average = %v, want 12", b1.CohortAverage)
	}
	if tr.Overall.LearnerAverage != nil {
		t.Errorf("overall learner average = %v, want nil", tr.Overall.LearnerAverage)
	}
}

func TestAggregator_BuildTranscript_Errors(t *testing.T) {
	agg := progression.NewAggregator(testCatalog(), progression.NewMemoryStore())

	if _, err := agg.BuildTranscript(t.Context(), "", programID); !errors.Is(err, progression.ErrInvalid) {
		t.Errorf("missing learner error = %v, want ErrInvalid", err)
	}
	if _, err := agg.BuildTranscript(t.Context(), learnerA, "99999999-0000-0000-0000-000000000009"); !errors.Is(err, progression.ErrNotFound) {
		t.Errorf("unknown program error = %v, want ErrNotFound", err)
	}
}

package progression_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openlms/progression/internal/progression"
)

func submitQuiz1(t *testing.T, g *progression.Grader, learnerID string, answers map[string]progression.AnswerPayload) *progression.AttemptResult {
	t.Helper()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	res, err := g.SubmitAttempt(t.Context(), learnerID, quiz1, answers, started, started.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("SubmitAttempt() error = %v", err)
	}
	return res
}

func TestGrader_SubmitAttempt_AllCorrect(t *testing.T) {
	store := progression.NewMemoryStore()
	g := progression.NewGrader(testCatalog(), store)

	// Quiz 1: single (2 pts), multiple (3 pts), open (1 pt, never auto-scored).
	res := submitQuiz1(t, g, learnerA, map[string]progression.AnswerPayload{
		question1: {Selected: []string{"opt-a"}},
		question2: {Selected: []string{"opt-c", "opt-b"}},
		question3: {Text: "free-form reasoning"},
	})

	if res.AttemptNumber != 1 {
		t.Errorf("AttemptNumber = %d, want 1", res.AttemptNumber)
	}
	if res.EarnedPoints != 5 || res.MaxPoints != 6 {
		t.Errorf("points = %d/%d, want 5/6", res.EarnedPoints, res.MaxPoints)
	}
	// round(100 * 5/6) = 83, round(83/100*20) = 17.
	if res.Score != 83 {
		t.Errorf("Score = %d, want 83", res.Score)
	}
	if res.GradeOn20 != 17 {
		t.Errorf("GradeOn20 = %d, want 17", res.GradeOn20)
	}
	if len(res.Questions) != 3 {
		t.Fatalf("question results = %d, want 3", len(res.Questions))
	}

	// The grade ledger row is written on the 20-point scale.
	records, err := store.GradesByBlocks(t.Context(), []string{block1})
	if err != nil {
		t.Fatalf("GradesByBlocks() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("grade rows = %d, want 1", len(records))
	}
	if records[0].Grade != 17 || records[0].GradeMax != 20 {
		t.Errorf("grade row = %v/%d, want 17/20", records[0].Grade, records[0].GradeMax)
	}
	if records[0].EvaluationType != progression.EvalQuiz || records[0].EvaluationID != quiz1 {
		t.Errorf("grade row keyed to %s %s", records[0].EvaluationType, records[0].EvaluationID)
	}
}

func TestGrader_SubmitAttempt_Scoring(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[string]progression.AnswerPayload
		wantEarned  int
		wantScore   int
		wantGrade20 int
	}{
		{
			"wrong single choice",
			map[string]progression.AnswerPayload{
				question1: {Selected: []string{"opt-b"}},
				question2: {Selected: []string{"opt-b", "opt-c"}},
			},
			3, 50, 10,
		},
		{
			"partial multiple gets nothing",
			map[string]progression.AnswerPayload{
				question1: {Selected: []string{"opt-a"}},
				question2: {Selected: []string{"opt-b"}},
			},
			2, 33, 7,
		},
		{
			"superset multiple gets nothing",
			map[string]progression.AnswerPayload{
				question2: {Selected: []string{"opt-a", "opt-b", "opt-c"}},
			},
			0, 0, 0,
		},
		{
			"empty submission scores zero",
			map[string]progression.AnswerPayload{},
			0, 0, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := progression.NewGrader(testCatalog(), progression.NewMemoryStore())
			res := submitQuiz1(t, g, learnerA, tt.answers)
			if res.EarnedPoints != tt.wantEarned {
				t.Errorf("EarnedPoints = %d, want %d", res.EarnedPoints, tt.wantEarned)
			}
			if res.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", res.Score, tt.wantScore)
			}
			if res.GradeOn20 != tt.wantGrade20 {
				t.Errorf("GradeOn20 = %d, want %d", res.GradeOn20, tt.wantGrade20)
			}
		})
	}
}

func TestGrader_SubmitAttempt_NumbersIncrease(t *testing.T) {
	g := progression.NewGrader(testCatalog(), progression.NewMemoryStore())

	first := submitQuiz1(t, g, learnerA, nil)
	second := submitQuiz1(t, g, learnerA, map[string]progression.AnswerPayload{
		question1: {Selected: []string{"opt-a"}},
	})

	if first.AttemptNumber != 1 || second.AttemptNumber != 2 {
		t.Errorf("attempt numbers = %d, %d, want 1, 2", first.AttemptNumber, second.AttemptNumber)
	}

	// A different learner starts back at 1.
	other := submitQuiz1(t, g, learnerB, nil)
	if other.AttemptNumber != 1 {
		t.Errorf("other learner attempt number = %d, want 1", other.AttemptNumber)
	}
}

func TestGrader_SubmitAttempt_Errors(t *testing.T) {
	g := progression.NewGrader(testCatalog(), progression.NewMemoryStore())
	ctx := t.Context()
	now := time.Now()

	_, err := g.SubmitAttempt(ctx, learnerA, "88888888-0000-0000-0000-000000000001", nil, now, now)
	if !errors.Is(err, progression.ErrNotFound) {
		t.Errorf("unknown quiz error = %v, want ErrNotFound", err)
	}

	_, err = g.SubmitAttempt(ctx, learnerA, quiz1, map[string]progression.AnswerPayload{
		"66666666-0000-0000-0000-000000000004": {Selected: []string{"true"}},
	}, now, now)
	if !errors.Is(err, progression.ErrInvalid) {
		t.Errorf("foreign question error = %v, want ErrInvalid", err)
	}

	_, err = g.SubmitAttempt(ctx, "", quiz1, nil, now, now)
	if !errors.Is(err, progression.ErrInvalid) {
		t.Errorf("missing learner error = %v, want ErrInvalid", err)
	}
}

// conflictStore wedges the first CreateAttempt call to model a concurrent
// submission grabbing the number between read and insert.
type conflictStore struct {
	*progression.MemoryStore
	fired bool
}

func (s *conflictStore) CreateAttempt(ctx context.Context, attempt progression.QuizAttempt, answers []progression.AnswerRecord) error {
	if !s.fired {
		s.fired = true
		rival := attempt
		rival.ID = ""
		if err := s.MemoryStore.CreateAttempt(ctx, rival, nil); err != nil {
			return err
		}
	}
	return s.MemoryStore.CreateAttempt(ctx, attempt, answers)
}

func TestGrader_SubmitAttempt_RetriesOnceOnConflict(t *testing.T) {
	store := &conflictStore{MemoryStore: progression.NewMemoryStore()}
	g := progression.NewGrader(testCatalog(), store)

	res := submitQuiz1(t, g, learnerA, nil)
	if res.AttemptNumber != 2 {
		t.Errorf("AttemptNumber = %d, want 2 after retry", res.AttemptNumber)
	}
}

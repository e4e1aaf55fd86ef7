package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openlms/progression/internal/catalog"
)

// AnswerPayload is a learner's answer to one question. Selected carries the
// chosen option ids for choice questions; Text carries free-form content
// for open and attachment questions.
type AnswerPayload struct {
	Selected []string `json:"selected,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// QuestionResult is the per-question scoring outcome of an attempt.
type QuestionResult struct {
	QuestionID    string   `json:"question_id"`
	Correct       bool     `json:"correct"`
	PointsAwarded int      `json:"points_awarded"`
	PointsMax     int      `json:"points_max"`
	GivenAnswer   []string `json:"given_answer"`
}

// AttemptResult is what a graded submission returns to the caller.
type AttemptResult struct {
	AttemptID     string           `json:"attempt_id"`
	AttemptNumber int              `json:"attempt_number"`
	Score         int              `json:"score"`
	GradeOn20     int              `json:"grade_on_20"`
	EarnedPoints  int              `json:"earned_points"`
	MaxPoints     int              `json:"max_points"`
	Questions     []QuestionResult `json:"questions"`
}

// Grader scores quiz attempts against the catalog's answer keys and writes
// the resulting grade to the ledger.
type Grader struct {
	catalog catalog.Catalog
	store   Store
}

// NewGrader creates a quiz attempt grader.
func NewGrader(cat catalog.Catalog, store Store) *Grader {
	return &Grader{catalog: cat, store: store}
}

// SubmitAttempt grades a quiz submission, assigns the next attempt number
// and persists the attempt, its answer records and the grade row. Two
// concurrent submissions for the same learner and quiz cannot share an
// attempt number: the store's uniqueness key rejects the loser, which then
// retries once with a fresh number.
func (g *Grader) SubmitAttempt(ctx context.Context, learnerID, quizID string, answers map[string]AnswerPayload, startedAt, finishedAt time.Time) (*AttemptResult, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id is required: %w", ErrInvalid)
	}

	detail, err := g.catalog.QuizDetail(ctx, quizID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading quiz %s: %w", quizID, err)
	}
	if len(detail.Questions) == 0 {
		return nil, fmt.Errorf("quiz %s has no active questions: %w", quizID, ErrNotFound)
	}
	for questionID := range answers {
		if _, ok := detail.Question(questionID); !ok {
			return nil, fmt.Errorf("question %s does not belong to quiz %s: %w", questionID, quizID, ErrInvalid)
		}
	}

	result, records := scoreAnswers(detail, answers)

	attempt := QuizAttempt{
		LearnerID:  learnerID,
		QuizID:     quizID,
		Score:      result.Score,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Finished:   true,
	}

	// One retry: a concurrent submission may have taken the number between
	// the read and the insert.
	for try := 0; ; try++ {
		max, err := g.store.MaxAttemptNumber(ctx, learnerID, quizID)
		if err != nil {
			return nil, fmt.Errorf("resolving attempt number: %w", err)
		}
		attempt.AttemptNumber = max + 1
		attempt.ID = ""

		err = g.store.CreateAttempt(ctx, attempt, records)
		if err == nil {
			break
		}
		if errors.Is(err, ErrConflict) && try == 0 {
			slog.Warn("attempt number taken, retrying",
				"learner_id", learnerID,
				"quiz_id", quizID,
				"attempt_number", attempt.AttemptNumber)
			continue
		}
		return nil, fmt.Errorf("storing attempt: %w", err)
	}

	grade := GradeRecord{
		LearnerID:      learnerID,
		BlockID:        detail.BlockID,
		EvaluationType: EvalQuiz,
		EvaluationID:   quizID,
		Grade:          float64(result.GradeOn20),
		GradeMax:       20,
		AttemptNumber:  attempt.AttemptNumber,
		GradedAt:       finishedAt,
	}
	if err := g.store.UpsertGrade(ctx, grade); err != nil {
		return nil, fmt.Errorf("writing grade: %w", err)
	}

	result.AttemptNumber = attempt.AttemptNumber
	return result, nil
}

// scoreAnswers applies the answer key to a submission. The attempt id on the
// returned answer records is filled in by the store.
func scoreAnswers(detail *catalog.QuizDetail, answers map[string]AnswerPayload) (*AttemptResult, []AnswerRecord) {
	result := &AttemptResult{MaxPoints: detail.MaxPoints()}
	records := make([]AnswerRecord, 0, len(detail.Questions))

	for _, q := range detail.Questions {
		given := answers[q.ID].Selected
		correct := isCorrect(q, given)

		awarded := 0
		if correct {
			awarded = q.Points
		}
		result.EarnedPoints += awarded
		result.Questions = append(result.Questions, QuestionResult{
			QuestionID:    q.ID,
			Correct:       correct,
			PointsAwarded: awarded,
			PointsMax:     q.Points,
			GivenAnswer:   given,
		})
		records = append(records, AnswerRecord{
			QuestionID:    q.ID,
			GivenAnswer:   given,
			CorrectAnswer: q.CorrectOptions,
			PointsAwarded: awarded,
		})
	}

	if result.MaxPoints > 0 {
		result.Score = int(math.Round(100 * float64(result.EarnedPoints) / float64(result.MaxPoints)))
	}
	result.GradeOn20 = int(math.Round(float64(result.Score) / 100 * 20))
	return result, records
}

// isCorrect applies the per-kind correctness rule. Open and attachment
// questions have no automatic key and never score.
func isCorrect(q catalog.Question, given []string) bool {
	switch q.Kind {
	case catalog.ChoiceSingle, catalog.TrueFalse:
		return len(given) == 1 && len(q.CorrectOptions) == 1 && given[0] == q.CorrectOptions[0]
	case catalog.ChoiceMultiple:
		if len(given) == 0 {
			return false
		}
		want := make(map[string]bool, len(q.CorrectOptions))
		for _, opt := range q.CorrectOptions {
			want[opt] = true
		}
		got := make(map[string]bool, len(given))
		for _, opt := range given {
			got[opt] = true
		}
		if len(got) != len(want) {
			return false
		}
		for opt := range got {
			if !want[opt] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

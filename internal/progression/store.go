package progression

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists activity and grade state. Implementations must enforce the
// two uniqueness keys — (learner, quiz, attempt number) on attempts and
// (learner, evaluation type, evaluation id, attempt number) on grades — and
// return ErrConflict when an insert collides.
type Store interface {
	// UpsertProgressEvent creates the (learner, chapter) row on first view
	// and refreshes last_touched_at on later views.
	UpsertProgressEvent(ctx context.Context, learnerID, blockID, chapterID string, at time.Time) error
	// ProgressEvents returns the learner's chapter reads within a block.
	ProgressEvents(ctx context.Context, learnerID, blockID string) ([]ProgressEvent, error)

	// AddTime adds minutes to the (learner, block, day) ledger row,
	// creating it if absent.
	AddTime(ctx context.Context, learnerID, blockID string, day time.Time, minutes int, at time.Time) error
	// TimeEntries returns the learner's daily time rows for a block.
	TimeEntries(ctx context.Context, learnerID, blockID string) ([]TimeLedgerEntry, error)

	// MaxAttemptNumber returns the highest attempt number for the learner
	// and quiz, zero when no attempts exist.
	MaxAttemptNumber(ctx context.Context, learnerID, quizID string) (int, error)
	// CreateAttempt persists an attempt and its answer records atomically.
	// Returns ErrConflict when the attempt number is already taken.
	CreateAttempt(ctx context.Context, attempt QuizAttempt, answers []AnswerRecord) error
	// FinishedQuizzes reports which of the given quizzes the learner has a
	// finished attempt for.
	FinishedQuizzes(ctx context.Context, learnerID string, quizIDs []string) (map[string]bool, error)

	// UpsertSubmission creates or replaces the learner's single submission
	// for a case study. Returns ErrConflict once the submission is graded.
	UpsertSubmission(ctx context.Context, sub CaseStudySubmission) (CaseStudySubmission, error)
	// Submission returns the learner's submission, or nil when none exists.
	Submission(ctx context.Context, learnerID, caseStudyID string) (*CaseStudySubmission, error)
	// SubmittedCaseStudies reports which of the given case studies the
	// learner has submitted.
	SubmittedCaseStudies(ctx context.Context, learnerID string, caseStudyIDs []string) (map[string]bool, error)

	// UpsertGrade writes a grade ledger row, replacing any existing row
	// with the same idempotency key.
	UpsertGrade(ctx context.Context, rec GradeRecord) error
	// GradedEvaluations reports which of the given evaluations have at
	// least one grade row for the learner.
	GradedEvaluations(ctx context.Context, learnerID string, evalType EvaluationType, evalIDs []string) (map[string]bool, error)
	// GradesByBlocks returns every learner's grade rows for the given
	// blocks. The transcript aggregator derives the cohort from this set.
	GradesByBlocks(ctx context.Context, blockIDs []string) ([]GradeRecord, error)
}

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu          sync.RWMutex
	progress    map[string]*ProgressEvent        // learnerID+chapterID
	timeLedger  map[string]*TimeLedgerEntry      // learnerID+blockID+day
	attempts    map[string]*QuizAttempt          // attempt ID
	attemptKeys map[string]string                // learnerID+quizID+number → attempt ID
	answers     map[string][]AnswerRecord        // attempt ID
	submissions map[string]*CaseStudySubmission  // learnerID+caseStudyID
	grades      map[string]*GradeRecord          // learnerID+type+evalID+number
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress:    make(map[string]*ProgressEvent),
		timeLedger:  make(map[string]*TimeLedgerEntry),
		attempts:    make(map[string]*QuizAttempt),
		attemptKeys: make(map[string]string),
		answers:     make(map[string][]AnswerRecord),
		submissions: make(map[string]*CaseStudySubmission),
		grades:      make(map[string]*GradeRecord),
	}
}

func (s *MemoryStore) UpsertProgressEvent(_ context.Context, learnerID, blockID, chapterID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := learnerID + "|" + chapterID
	if ev, ok := s.progress[key]; ok {
		ev.LastTouchedAt = at
		return nil
	}
	s.progress[key] = &ProgressEvent{
		LearnerID:     learnerID,
		ChapterID:     chapterID,
		BlockID:       blockID,
		FirstViewedAt: at,
		LastTouchedAt: at,
	}
	return nil
}

func (s *MemoryStore) ProgressEvents(_ context.Context, learnerID, blockID string) ([]ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []ProgressEvent
	for _, ev := range s.progress {
		if ev.LearnerID == learnerID && ev.BlockID == blockID {
			events = append(events, *ev)
		}
	}
	return events, nil
}

func (s *MemoryStore) AddTime(_ context.Context, learnerID, blockID string, day time.Time, minutes int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayKey := day.UTC().Format("2006-01-02")
	key := learnerID + "|" + blockID + "|" + dayKey
	if entry, ok := s.timeLedger[key]; ok {
		entry.Minutes += minutes
		entry.LastActivityAt = at
		return nil
	}
	s.timeLedger[key] = &TimeLedgerEntry{
		LearnerID:      learnerID,
		BlockID:        blockID,
		CalendarDay:    truncateToDay(day),
		Minutes:        minutes,
		LastActivityAt: at,
	}
	return nil
}

func (s *MemoryStore) TimeEntries(_ context.Context, learnerID, blockID string) ([]TimeLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []TimeLedgerEntry
	for _, e := range s.timeLedger {
		if e.LearnerID == learnerID && e.BlockID == blockID {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CalendarDay.Before(entries[j].CalendarDay)
	})
	return entries, nil
}

func (s *MemoryStore) MaxAttemptNumber(_ context.Context, learnerID, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, a := range s.attempts {
		if a.LearnerID == learnerID && a.QuizID == quizID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max, nil
}

func (s *MemoryStore) CreateAttempt(_ context.Context, attempt QuizAttempt, answers []AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%d", attempt.LearnerID, attempt.QuizID, attempt.AttemptNumber)
	if _, taken := s.attemptKeys[key]; taken {
		return fmt.Errorf("attempt %d for quiz %s: %w", attempt.AttemptNumber, attempt.QuizID, ErrConflict)
	}

	stored := attempt
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.attempts[stored.ID] = &stored
	s.attemptKeys[key] = stored.ID

	recs := make([]AnswerRecord, len(answers))
	for i, a := range answers {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.AttemptID = stored.ID
		recs[i] = a
	}
	s.answers[stored.ID] = recs
	return nil
}

func (s *MemoryStore) FinishedQuizzes(_ context.Context, learnerID string, quizIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(quizIDs)
	finished := make(map[string]bool)
	for _, a := range s.attempts {
		if a.LearnerID == learnerID && a.Finished && wanted[a.QuizID] {
			finished[a.QuizID] = true
		}
	}
	return finished, nil
}

func (s *MemoryStore) UpsertSubmission(_ context.Context, sub CaseStudySubmission) (CaseStudySubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sub.LearnerID + "|" + sub.CaseStudyID
	if existing, ok := s.submissions[key]; ok {
		if existing.Graded() {
			return CaseStudySubmission{}, fmt.Errorf("submission for case study %s already graded: %w", sub.CaseStudyID, ErrConflict)
		}
		existing.Answers = sub.Answers
		existing.Attachments = sub.Attachments
		existing.SubmittedAt = sub.SubmittedAt
		return *existing, nil
	}

	stored := sub
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.submissions[key] = &stored
	return stored, nil
}

func (s *MemoryStore) Submission(_ context.Context, learnerID, caseStudyID string) (*CaseStudySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[learnerID+"|"+caseStudyID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

// SetSubmissionGrade writes the grading fields an external grader fills in.
// The engine itself never calls this; it exists for the grading workflow
// boundary and for tests.
func (s *MemoryStore) SetSubmissionGrade(learnerID, caseStudyID string, grade float64, graderID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[learnerID+"|"+caseStudyID]
	if !ok {
		return fmt.Errorf("submission for case study %s: %w", caseStudyID, ErrNotFound)
	}
	sub.Grade = &grade
	sub.GradedAt = &at
	sub.GraderID = &graderID
	return nil
}

func (s *MemoryStore) SubmittedCaseStudies(_ context.Context, learnerID string, caseStudyIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submitted := make(map[string]bool)
	for _, id := range caseStudyIDs {
		if _, ok := s.submissions[learnerID+"|"+id]; ok {
			submitted[id] = true
		}
	}
	return submitted, nil
}

func (s *MemoryStore) UpsertGrade(_ context.Context, rec GradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%s|%d", rec.LearnerID, rec.EvaluationType, rec.EvaluationID, rec.AttemptNumber)
	if existing, ok := s.grades[key]; ok {
		rec.ID = existing.ID
		*existing = rec
		return nil
	}
	stored := rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.grades[key] = &stored
	return nil
}

func (s *MemoryStore) GradedEvaluations(_ context.Context, learnerID string, evalType EvaluationType, evalIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(evalIDs)
	graded := make(map[string]bool)
	for _, g := range s.grades {
		if g.LearnerID == learnerID && g.EvaluationType == evalType && wanted[g.EvaluationID] {
			graded[g.EvaluationID] = true
		}
	}
	return graded, nil
}

func (s *MemoryStore) GradesByBlocks(_ context.Context, blockIDs []string) ([]GradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := toSet(blockIDs)
	var records []GradeRecord
	for _, g := range s.grades {
		if wanted[g.BlockID] {
			records = append(records, *g)
		}
	}
	return records, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package progression

import "time"

// EvaluationType identifies which kind of evaluation a grade row scores.
type EvaluationType string

const (
	EvalQuiz      EvaluationType = "quiz"
	EvalCourse    EvaluationType = "course"
	EvalCaseStudy EvaluationType = "case_study"
)

// ProgressEvent marks a chapter as read. One row per (learner, chapter);
// repeat views only touch LastTouchedAt.
type ProgressEvent struct {
	LearnerID     string    `json:"learner_id"`
	ChapterID     string    `json:"chapter_id"`
	BlockID       string    `json:"block_id"`
	FirstViewedAt time.Time `json:"first_viewed_at"`
	LastTouchedAt time.Time `json:"last_touched_at"`
}

// TimeLedgerEntry accumulates study minutes per (learner, block, day).
// Updates are additive only.
type TimeLedgerEntry struct {
	LearnerID      string    `json:"learner_id"`
	BlockID        string    `json:"block_id"`
	CalendarDay    time.Time `json:"calendar_day"`
	Minutes        int       `json:"minutes"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// QuizAttempt is one graded submission of a quiz. Immutable once created.
// AttemptNumber is strictly increasing per (learner, quiz), starting at 1.
type QuizAttempt struct {
	ID            string    `json:"id"`
	LearnerID     string    `json:"learner_id"`
	QuizID        string    `json:"quiz_id"`
	AttemptNumber int       `json:"attempt_number"`
	Score         int       `json:"score"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Finished      bool      `json:"finished"`
}

// AnswerRecord captures what was answered per question, created together
// with its attempt and never mutated.
type AnswerRecord struct {
	ID            string   `json:"id"`
	AttemptID     string   `json:"attempt_id"`
	QuestionID    string   `json:"question_id"`
	GivenAnswer   []string `json:"given_answer"`
	CorrectAnswer []string `json:"correct_answer"`
	PointsAwarded int      `json:"points_awarded"`
}

// CaseStudySubmission is a learner's answer to a hand-graded assignment.
// One row per (learner, case study); content stays mutable until a grader
// fills the grade fields.
type CaseStudySubmission struct {
	ID          string     `json:"id"`
	LearnerID   string     `json:"learner_id"`
	CaseStudyID string     `json:"case_study_id"`
	Answers     string     `json:"answers"`
	Attachments []string   `json:"attachments"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Grade       *float64   `json:"grade,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
	GraderID    *string    `json:"grader_id,omitempty"`
}

// Graded reports whether a human grader has scored the submission.
func (s *CaseStudySubmission) Graded() bool {
	return s.Grade != nil
}

// SubmissionState is the correction state surfaced to callers. Overdue is
// informational only and never blocks anything.
type SubmissionState string

const (
	StateUngraded SubmissionState = "ungraded"
	StateGraded   SubmissionState = "graded"
	StateOverdue  SubmissionState = "overdue"
)

// GradeRecord is a row of the unified grade ledger. Writes are idempotent
// on (learner, evaluation type, evaluation id, attempt number).
type GradeRecord struct {
	ID             string         `json:"id"`
	LearnerID      string         `json:"learner_id"`
	BlockID        string         `json:"block_id"`
	EvaluationType EvaluationType `json:"evaluation_type"`
	EvaluationID   string         `json:"evaluation_id"`
	Grade          float64        `json:"grade"`
	GradeMax       int            `json:"grade_max"`
	AttemptNumber  int            `json:"attempt_number"`
	GradedAt       time.Time      `json:"graded_at"`
}

// NormalizedGrade rescales the grade to the 20-point reporting scale.
func (g GradeRecord) NormalizedGrade() float64 {
	if g.GradeMax == 20 || g.GradeMax == 0 {
		return g.Grade
	}
	return g.Grade * 20 / float64(g.GradeMax)
}

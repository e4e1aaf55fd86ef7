package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// uniqueViolation is the SQLSTATE pgx reports when an insert hits a UNIQUE
// constraint.
const uniqueViolation = "23505"

// PostgresStore is a PostgreSQL-backed Store. The uniqueness requirements
// live in the schema; this type only translates constraint violations into
// ErrConflict and transient failures into ErrUnavailable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed activity and grade store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) UpsertProgressEvent(ctx context.Context, learnerID, blockID, chapterID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress_events (learner_id, chapter_id, block_id, first_viewed_at, last_touched_at)
		 VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $4)
		 ON CONFLICT (learner_id, chapter_id)
		 DO UPDATE SET last_touched_at = EXCLUDED.last_touched_at`,
		learnerID, chapterID, blockID, at,
	)
	if err != nil {
		return storeErr("upsert progress event", err)
	}
	return nil
}

func (s *PostgresStore) ProgressEvents(ctx context.Context, learnerID, blockID string) ([]ProgressEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT learner_id::text, chapter_id::text, block_id::text, first_viewed_at, last_touched_at
		 FROM progress_events
		 WHERE learner_id = $1::uuid AND block_id = $2::uuid`,
		learnerID, blockID,
	)
	if err != nil {
		return nil, storeErr("query progress events", err)
	}
	defer rows.Close()

	var events []ProgressEvent
	for rows.Next() {
		var ev ProgressEvent
		if err := rows.Scan(&ev.LearnerID, &ev.ChapterID, &ev.BlockID, &ev.FirstViewedAt, &ev.LastTouchedAt); err != nil {
			return nil, fmt.Errorf("scan progress event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate progress events", err)
	}
	return events, nil
}

func (s *PostgresStore) AddTime(ctx context.Context, learnerID, blockID string, day time.Time, minutes int, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO time_ledger (learner_id, block_id, calendar_day, minutes, last_activity_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		 ON CONFLICT (learner_id, block_id, calendar_day)
		 DO UPDATE SET minutes = time_ledger.minutes + EXCLUDED.minutes,
		               last_activity_at = EXCLUDED.last_activity_at`,
		learnerID, blockID, day.UTC().Format("2006-01-02"), minutes, at,
	)
	if err != nil {
		return storeErr("add time", err)
	}
	return nil
}

func (s *PostgresStore) TimeEntries(ctx context.Context, learnerID, blockID string) ([]TimeLedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT learner_id::text, block_id::text, calendar_day, minutes, last_activity_at
		 FROM time_ledger
		 WHERE learner_id = $1::uuid AND block_id = $2::uuid
		 ORDER BY calendar_day ASC`,
		learnerID, blockID,
	)
	if err != nil {
		return nil, storeErr("query time ledger", err)
	}
	defer rows.Close()

	var entries []TimeLedgerEntry
	for rows.Next() {
		var e TimeLedgerEntry
		if err := rows.Scan(&e.LearnerID, &e.BlockID, &e.CalendarDay, &e.Minutes, &e.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate time ledger", err)
	}
	return entries, nil
}

func (s *PostgresStore) MaxAttemptNumber(ctx context.Context, learnerID, quizID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var max int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0)
		 FROM quiz_attempts
		 WHERE learner_id = $1::uuid AND quiz_id = $2::uuid`,
		learnerID, quizID,
	).Scan(&max)
	if err != nil {
		return 0, storeErr("query max attempt number", err)
	}
	return max, nil
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, attempt QuizAttempt, answers []AnswerRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("begin attempt tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quiz_attempts (id, learner_id, quiz_id, attempt_number, score, started_at, finished_at, finished)
		 VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.LearnerID, attempt.QuizID, attempt.AttemptNumber,
		attempt.Score, attempt.StartedAt, attempt.FinishedAt, attempt.Finished,
	)
	if err != nil {
		return storeErr("insert attempt", err)
	}

	for _, a := range answers {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO answer_records (id, attempt_id, question_id, given_answer, correct_answer, points_awarded)
			 VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)`,
			a.ID, attempt.ID, a.QuestionID, a.GivenAnswer, a.CorrectAnswer, a.PointsAwarded,
		)
		if err != nil {
			return storeErr("insert answer record", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit attempt", err)
	}
	return nil
}

func (s *PostgresStore) FinishedQuizzes(ctx context.Context, learnerID string, quizIDs []string) (map[string]bool, error) {
	finished := make(map[string]bool)
	if len(quizIDs) == 0 {
		return finished, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT quiz_id::text
		 FROM quiz_attempts
		 WHERE learner_id = $1::uuid AND quiz_id = ANY($2::uuid[]) AND finished`,
		learnerID, quizIDs,
	)
	if err != nil {
		return nil, storeErr("query finished quizzes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		finished[id] = true
	}
	return finished, rows.Err()
}

func (s *PostgresStore) UpsertSubmission(ctx context.Context, sub CaseStudySubmission) (CaseStudySubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	// The WHERE clause on the conflict update keeps graded submissions
	// immutable; no row coming back means the update was suppressed.
	var stored CaseStudySubmission
	err := s.pool.QueryRow(ctx,
		`INSERT INTO case_study_submissions (id, learner_id, case_study_id, answers, attachments, submitted_at)
		 VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
		 ON CONFLICT (learner_id, case_study_id)
		 DO UPDATE SET answers = EXCLUDED.answers,
		               attachments = EXCLUDED.attachments,
		               submitted_at = EXCLUDED.submitted_at
		 WHERE case_study_submissions.grade IS NULL
		 RETURNING id::text, learner_id::text, case_study_id::text, answers, attachments, submitted_at`,
		sub.ID, sub.LearnerID, sub.CaseStudyID, sub.Answers, sub.Attachments, sub.SubmittedAt,
	).Scan(&stored.ID, &stored.LearnerID, &stored.CaseStudyID, &stored.Answers, &stored.Attachments, &stored.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CaseStudySubmission{}, fmt.Errorf("submission for case study %s already graded: %w", sub.CaseStudyID, ErrConflict)
		}
		return CaseStudySubmission{}, storeErr("upsert submission", err)
	}
	return stored, nil
}

func (s *PostgresStore) Submission(ctx context.Context, learnerID, caseStudyID string) (*CaseStudySubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sub := &CaseStudySubmission{}
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, learner_id::text, case_study_id::text, answers, attachments,
		        submitted_at, grade, graded_at, grader_id::text
		 FROM case_study_submissions
		 WHERE learner_id = $1::uuid AND case_study_id = $2::uuid`,
		learnerID, caseStudyID,
	).Scan(&sub.ID, &sub.LearnerID, &sub.CaseStudyID, &sub.Answers, &sub.Attachments,
		&sub.SubmittedAt, &sub.Grade, &sub.GradedAt, &sub.GraderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("query submission", err)
	}
	return sub, nil
}

func (s *PostgresStore) SubmittedCaseStudies(ctx context.Context, learnerID string, caseStudyIDs []string) (map[string]bool, error) {
	submitted := make(map[string]bool)
	if len(caseStudyIDs) == 0 {
		return submitted, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT case_study_id::text
		 FROM case_study_submissions
		 WHERE learner_id = $1::uuid AND case_study_id = ANY($2::uuid[])`,
		learnerID, caseStudyIDs,
	)
	if err != nil {
		return nil, storeErr("query submitted case studies", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan case study id: %w", err)
		}
		submitted[id] = true
	}
	return submitted, rows.Err()
}

func (s *PostgresStore) UpsertGrade(ctx context.Context, rec GradeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO grade_records (id, learner_id, block_id, evaluation_type, evaluation_id, grade, grade_max, attempt_number, graded_at)
		 VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5::uuid, $6, $7, $8, $9)
		 ON CONFLICT (learner_id, evaluation_type, evaluation_id, attempt_number)
		 DO UPDATE SET grade = EXCLUDED.grade,
		               grade_max = EXCLUDED.grade_max,
		               block_id = EXCLUDED.block_id,
		               graded_at = EXCLUDED.graded_at`,
		rec.ID, rec.LearnerID, rec.BlockID, rec.EvaluationType, rec.EvaluationID,
		rec.Grade, rec.GradeMax, rec.AttemptNumber, rec.GradedAt,
	)
	if err != nil {
		return storeErr("upsert grade", err)
	}
	return nil
}

func (s *PostgresStore) GradedEvaluations(ctx context.Context, learnerID string, evalType EvaluationType, evalIDs []string) (map[string]bool, error) {
	graded := make(map[string]bool)
	if len(evalIDs) == 0 {
		return graded, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT evaluation_id::text
		 FROM grade_records
		 WHERE learner_id = $1::uuid AND evaluation_type = $2 AND evaluation_id = ANY($3::uuid[])`,
		learnerID, evalType, evalIDs,
	)
	if err != nil {
		return nil, storeErr("query graded evaluations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan evaluation id: %w", err)
		}
		graded[id] = true
	}
	return graded, rows.Err()
}

func (s *PostgresStore) GradesByBlocks(ctx context.Context, blockIDs []string) ([]GradeRecord, error) {
	if len(blockIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, learner_id::text, block_id::text, evaluation_type, evaluation_id::text,
		        grade, grade_max, attempt_number, graded_at
		 FROM grade_records
		 WHERE block_id = ANY($1::uuid[])`,
		blockIDs,
	)
	if err != nil {
		return nil, storeErr("query grades by blocks", err)
	}
	defer rows.Close()

	var records []GradeRecord
	for rows.Next() {
		var g GradeRecord
		if err := rows.Scan(&g.ID, &g.LearnerID, &g.BlockID, &g.EvaluationType, &g.EvaluationID,
			&g.Grade, &g.GradeMax, &g.AttemptNumber, &g.GradedAt); err != nil {
			return nil, fmt.Errorf("scan grade record: %w", err)
		}
		records = append(records, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate grade records", err)
	}
	return records, nil
}

// storeErr classifies database failures: unique violations become
// ErrConflict, everything else is a transient ErrUnavailable so callers
// know a retry is reasonable.
func storeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
}

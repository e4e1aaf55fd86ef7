package database

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. The two UNIQUE constraints on
// quiz_attempts and grade_records are load-bearing: they close the
// attempt-number race and make grade upserts idempotent.
const schema = `
-- Curriculum catalog (owned by content authoring; read-only to the engine)

CREATE TABLE IF NOT EXISTS programs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(200) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT programs_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE TABLE IF NOT EXISTS blocks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    program_id UUID NOT NULL REFERENCES programs(id),
    sequence_number INTEGER NOT NULL,
    name VARCHAR(200) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT blocks_valid_status CHECK (status IN ('published', 'unpublished')),
    CONSTRAINT blocks_positive_sequence CHECK (sequence_number >= 1),
    UNIQUE (program_id, sequence_number)
);

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    block_id UUID NOT NULL REFERENCES blocks(id),
    position INTEGER NOT NULL DEFAULT 0,
    name VARCHAR(200) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT courses_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE TABLE IF NOT EXISTS chapters (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL REFERENCES courses(id),
    position INTEGER NOT NULL DEFAULT 0,
    name VARCHAR(200) NOT NULL,
    content_type VARCHAR(20) NOT NULL DEFAULT 'text',
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT chapters_valid_content CHECK (content_type IN ('text', 'video', 'presentation')),
    CONSTRAINT chapters_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE TABLE IF NOT EXISTS quizzes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    chapter_id UUID NOT NULL UNIQUE REFERENCES chapters(id),
    name VARCHAR(200) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT quizzes_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE TABLE IF NOT EXISTS questions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    quiz_id UUID NOT NULL REFERENCES quizzes(id),
    position INTEGER NOT NULL DEFAULT 0,
    kind VARCHAR(20) NOT NULL,
    points INTEGER NOT NULL DEFAULT 1,
    correct_options TEXT[] NOT NULL DEFAULT '{}',
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT questions_valid_kind CHECK (kind IN ('choice_single', 'choice_multiple', 'true_false', 'open', 'attachment')),
    CONSTRAINT questions_positive_points CHECK (points >= 0),
    CONSTRAINT questions_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE TABLE IF NOT EXISTS case_studies (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL UNIQUE REFERENCES courses(id),
    name VARCHAR(200) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'published',
    CONSTRAINT case_studies_valid_status CHECK (status IN ('published', 'unpublished'))
);

CREATE INDEX IF NOT EXISTS idx_blocks_program ON blocks(program_id, sequence_number);
CREATE INDEX IF NOT EXISTS idx_courses_block ON courses(block_id, position);
CREATE INDEX IF NOT EXISTS idx_chapters_course ON chapters(course_id, position);
CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);

-- Activity and grade ledger (owned by the progression engine)

CREATE TABLE IF NOT EXISTS progress_events (
    learner_id UUID NOT NULL,
    chapter_id UUID NOT NULL,
    block_id UUID NOT NULL,
    first_viewed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_touched_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, chapter_id)
);

CREATE INDEX IF NOT EXISTS idx_progress_events_block ON progress_events(learner_id, block_id);

CREATE TABLE IF NOT EXISTS time_ledger (
    learner_id UUID NOT NULL,
    block_id UUID NOT NULL,
    calendar_day DATE NOT NULL,
    minutes INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT time_ledger_positive_minutes CHECK (minutes >= 0),
    PRIMARY KEY (learner_id, block_id, calendar_day)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL,
    quiz_id UUID NOT NULL,
    attempt_number INTEGER NOT NULL,
    score INTEGER NOT NULL,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished BOOLEAN NOT NULL DEFAULT TRUE,
    CONSTRAINT quiz_attempts_valid_score CHECK (score >= 0 AND score <= 100),
    CONSTRAINT quiz_attempts_positive_number CHECK (attempt_number >= 1),
    UNIQUE (learner_id, quiz_id, attempt_number)
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_learner ON quiz_attempts(learner_id, quiz_id);

CREATE TABLE IF NOT EXISTS answer_records (
    id UUID PRIMARY KEY,
    attempt_id UUID NOT NULL REFERENCES quiz_attempts(id),
    question_id UUID NOT NULL,
    given_answer TEXT[] NOT NULL DEFAULT '{}',
    correct_answer TEXT[] NOT NULL DEFAULT '{}',
    points_awarded INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_answer_records_attempt ON answer_records(attempt_id);

CREATE TABLE IF NOT EXISTS case_study_submissions (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL,
    case_study_id UUID NOT NULL,
    answers TEXT NOT NULL DEFAULT '',
    attachments TEXT[] NOT NULL DEFAULT '{}',
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    grade NUMERIC(5,2),
    graded_at TIMESTAMP WITH TIME ZONE,
    grader_id UUID,
    UNIQUE (learner_id, case_study_id)
);

CREATE TABLE IF NOT EXISTS grade_records (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL,
    block_id UUID NOT NULL,
    evaluation_type VARCHAR(20) NOT NULL,
    evaluation_id UUID NOT NULL,
    grade NUMERIC(5,2) NOT NULL,
    grade_max INTEGER NOT NULL DEFAULT 20,
    attempt_number INTEGER NOT NULL DEFAULT 1,
    graded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    CONSTRAINT grade_records_valid_type CHECK (evaluation_type IN ('quiz', 'course', 'case_study')),
    CONSTRAINT grade_records_positive_max CHECK (grade_max > 0),
    UNIQUE (learner_id, evaluation_type, evaluation_id, attempt_number)
);

CREATE INDEX IF NOT EXISTS idx_grade_records_learner_block ON grade_records(learner_id, block_id);
CREATE INDEX IF NOT EXISTS idx_grade_records_block ON grade_records(block_id);
`

// Migrate applies the schema. Safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

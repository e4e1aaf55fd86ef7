package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresCatalog reads the content-authoring tables. Every query filters
// on published status; unpublished content is indistinguishable from
// absent content.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog creates a PostgreSQL-backed catalog.
func NewPostgresCatalog(pool *pgxpool.Pool) (*PostgresCatalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresCatalog{pool: pool}, nil
}

func (c *PostgresCatalog) Program(ctx context.Context, programID string) (Program, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p Program
	err := c.pool.QueryRow(ctx,
		`SELECT id::text, name, status
		 FROM programs
		 WHERE id = $1::uuid AND status = 'published'`,
		programID,
	).Scan(&p.ID, &p.Name, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Program{}, fmt.Errorf("program %s: %w", programID, ErrNotFound)
		}
		return Program{}, fmt.Errorf("query program: %w", err)
	}
	return p, nil
}

func (c *PostgresCatalog) Blocks(ctx context.Context, programID string) ([]Block, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := c.Program(ctx, programID); err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id::text, program_id::text, sequence_number, name, status
		 FROM blocks
		 WHERE program_id = $1::uuid AND status = 'published'
		 ORDER BY sequence_number ASC`,
		programID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.ProgramID, &b.SequenceNumber, &b.Name, &b.Status); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// BlockTree assembles the published course tree with one query per entity
// kind, keyed by collected ID sets, then joins in memory.
func (c *PostgresCatalog) BlockTree(ctx context.Context, blockID string) (*BlockTree, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var b Block
	err := c.pool.QueryRow(ctx,
		`SELECT id::text, program_id::text, sequence_number, name, status
		 FROM blocks
		 WHERE id = $1::uuid AND status = 'published'`,
		blockID,
	).Scan(&b.ID, &b.ProgramID, &b.SequenceNumber, &b.Name, &b.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
		}
		return nil, fmt.Errorf("query block: %w", err)
	}

	tree := &BlockTree{Block: b}

	courses, err := c.coursesByBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return tree, nil
	}

	courseIDs := make([]string, len(courses))
	for i, course := range courses {
		courseIDs[i] = course.ID
	}

	chaptersByCourse, chapterIDs, err := c.chaptersByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	quizzesByChapter, err := c.quizzesByChapters(ctx, chapterIDs)
	if err != nil {
		return nil, err
	}
	studiesByCourse, err := c.caseStudiesByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	for _, course := range courses {
		node := CourseNode{Course: course}
		node.Chapters = chaptersByCourse[course.ID]
		for _, ch := range node.Chapters {
			if q, ok := quizzesByChapter[ch.ID]; ok {
				node.Quizzes = append(node.Quizzes, q)
			}
		}
		if cs, ok := studiesByCourse[course.ID]; ok {
			study := cs
			node.CaseStudy = &study
		}
		tree.Courses = append(tree.Courses, node)
	}

	return tree, nil
}

func (c *PostgresCatalog) QuizDetail(ctx context.Context, quizID string) (*QuizDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	detail := &QuizDetail{}
	err := c.pool.QueryRow(ctx,
		`SELECT q.id::text, q.chapter_id::text, q.name, q.status, co.block_id::text
		 FROM quizzes q
		 JOIN chapters ch ON ch.id = q.chapter_id AND ch.status = 'published'
		 JOIN courses co ON co.id = ch.course_id AND co.status = 'published'
		 WHERE q.id = $1::uuid AND q.status = 'published'`,
		quizID,
	).Scan(&detail.Quiz.ID, &detail.Quiz.ChapterID, &detail.Quiz.Name, &detail.Quiz.Status, &detail.BlockID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
		}
		return nil, fmt.Errorf("query quiz: %w", err)
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id::text, quiz_id::text, position, kind, points, correct_options, status
		 FROM questions
		 WHERE quiz_id = $1::uuid AND status = 'published'
		 ORDER BY position ASC`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Kind, &q.Points, &q.CorrectOptions, &q.Status); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		detail.Questions = append(detail.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return detail, nil
}

func (c *PostgresCatalog) CaseStudyDetail(ctx context.Context, caseStudyID string) (*CaseStudyDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	detail := &CaseStudyDetail{}
	err := c.pool.QueryRow(ctx,
		`SELECT cs.id::text, cs.course_id::text, cs.name, cs.status, co.block_id::text
		 FROM case_studies cs
		 JOIN courses co ON co.id = cs.course_id AND co.status = 'published'
		 WHERE cs.id = $1::uuid AND cs.status = 'published'`,
		caseStudyID,
	).Scan(&detail.CaseStudy.ID, &detail.CaseStudy.CourseID, &detail.CaseStudy.Name, &detail.CaseStudy.Status, &detail.BlockID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("case study %s: %w", caseStudyID, ErrNotFound)
		}
		return nil, fmt.Errorf("query case study: %w", err)
	}
	return detail, nil
}

func (c *PostgresCatalog) coursesByBlock(ctx context.Context, blockID string) ([]Course, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, block_id::text, position, name, status
		 FROM courses
		 WHERE block_id = $1::uuid AND status = 'published'
		 ORDER BY position ASC`,
		blockID,
	)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var co Course
		if err := rows.Scan(&co.ID, &co.BlockID, &co.Position, &co.Name, &co.Status); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, co)
	}
	return courses, rows.Err()
}

func (c *PostgresCatalog) chaptersByCourses(ctx context.Context, courseIDs []string) (map[string][]Chapter, []string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, course_id::text, position, name, content_type, status
		 FROM chapters
		 WHERE course_id = ANY($1::uuid[]) AND status = 'published'
		 ORDER BY position ASC`,
		courseIDs,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	byCourse := make(map[string][]Chapter)
	var ids []string
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Position, &ch.Name, &ch.ContentType, &ch.Status); err != nil {
			return nil, nil, fmt.Errorf("scan chapter: %w", err)
		}
		byCourse[ch.CourseID] = append(byCourse[ch.CourseID], ch)
		ids = append(ids, ch.ID)
	}
	return byCourse, ids, rows.Err()
}

func (c *PostgresCatalog) quizzesByChapters(ctx context.Context, chapterIDs []string) (map[string]Quiz, error) {
	if len(chapterIDs) == 0 {
		return map[string]Quiz{}, nil
	}
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, chapter_id::text, name, status
		 FROM quizzes
		 WHERE chapter_id = ANY($1::uuid[]) AND status = 'published'`,
		chapterIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	byChapter := make(map[string]Quiz)
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.Name, &q.Status); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		byChapter[q.ChapterID] = q
	}
	return byChapter, rows.Err()
}

func (c *PostgresCatalog) caseStudiesByCourses(ctx context.Context, courseIDs []string) (map[string]CaseStudy, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id::text, course_id::text, name, status
		 FROM case_studies
		 WHERE course_id = ANY($1::uuid[]) AND status = 'published'`,
		courseIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query case studies: %w", err)
	}
	defer rows.Close()

	byCourse := make(map[string]CaseStudy)
	for rows.Next() {
		var cs CaseStudy
		if err := rows.Scan(&cs.ID, &cs.CourseID, &cs.Name, &cs.Status); err != nil {
			return nil, fmt.Errorf("scan case study: %w", err)
		}
		byCourse[cs.CourseID] = cs
	}
	return byCourse, rows.Err()
}

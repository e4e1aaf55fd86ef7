package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when an entity does not exist or is unpublished.
// The engine treats both the same way: content that isn't published isn't
// there.
var ErrNotFound = errors.New("catalog: not found")

// Catalog reads curriculum definitions. All methods return only published
// entities, children included.
type Catalog interface {
	// Program returns a published program.
	Program(ctx context.Context, programID string) (Program, error)
	// Blocks returns a program's published blocks ordered by sequence number.
	Blocks(ctx context.Context, programID string) ([]Block, error)
	// BlockTree returns a block with its full published course tree.
	BlockTree(ctx context.Context, blockID string) (*BlockTree, error)
	// QuizDetail returns a quiz with its active questions and owning block.
	QuizDetail(ctx context.Context, quizID string) (*QuizDetail, error)
	// CaseStudyDetail returns a case study and its owning block.
	CaseStudyDetail(ctx context.Context, caseStudyID string) (*CaseStudyDetail, error)
}

// MemoryCatalog is an in-memory Catalog, populated by the YAML loader or
// directly in tests.
type MemoryCatalog struct {
	mu          sync.RWMutex
	programs    map[string]Program
	blocks      map[string]Block
	courses     map[string]Course
	chapters    map[string]Chapter
	quizzes     map[string]Quiz
	questions   map[string]Question
	caseStudies map[string]CaseStudy
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		programs:    make(map[string]Program),
		blocks:      make(map[string]Block),
		courses:     make(map[string]Course),
		chapters:    make(map[string]Chapter),
		quizzes:     make(map[string]Quiz),
		questions:   make(map[string]Question),
		caseStudies: make(map[string]CaseStudy),
	}
}

// AddProgram registers a program and returns the catalog for chaining.
func (m *MemoryCatalog) AddProgram(p Program) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[p.ID] = p
	return m
}

// AddBlock registers a block.
func (m *MemoryCatalog) AddBlock(b Block) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = b
	return m
}

// AddCourse registers a course.
func (m *MemoryCatalog) AddCourse(c Course) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return m
}

// AddChapter registers a chapter.
func (m *MemoryCatalog) AddChapter(c Chapter) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters[c.ID] = c
	return m
}

// AddQuiz registers a quiz.
func (m *MemoryCatalog) AddQuiz(q Quiz) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return m
}

// AddQuestion registers a question.
func (m *MemoryCatalog) AddQuestion(q Question) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return m
}

// AddCaseStudy registers a case study.
func (m *MemoryCatalog) AddCaseStudy(cs CaseStudy) *MemoryCatalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caseStudies[cs.ID] = cs
	return m
}

func (m *MemoryCatalog) Program(_ context.Context, programID string) (Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.programs[programID]
	if !ok || p.Status != Published {
		return Program{}, fmt.Errorf("program %s: %w", programID, ErrNotFound)
	}
	return p, nil
}

func (m *MemoryCatalog) Blocks(_ context.Context, programID string) ([]Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.programs[programID]
	if !ok || p.Status != Published {
		return nil, fmt.Errorf("program %s: %w", programID, ErrNotFound)
	}

	var blocks []Block
	for _, b := range m.blocks {
		if b.ProgramID == programID && b.Status == Published {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].SequenceNumber < blocks[j].SequenceNumber
	})
	return blocks, nil
}

func (m *MemoryCatalog) BlockTree(_ context.Context, blockID string) (*BlockTree, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blocks[blockID]
	if !ok || b.Status != Published {
		return nil, fmt.Errorf("block %s: %w", blockID, ErrNotFound)
	}

	tree := &BlockTree{Block: b}

	var courses []Course
	for _, c := range m.courses {
		if c.BlockID == blockID && c.Status == Published {
			courses = append(courses, c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Position < courses[j].Position })

	for _, c := range courses {
		node := CourseNode{Course: c}

		for _, ch := range m.chapters {
			if ch.CourseID == c.ID && ch.Status == Published {
				node.Chapters = append(node.Chapters, ch)
			}
		}
		sort.Slice(node.Chapters, func(i, j int) bool {
			return node.Chapters[i].Position < node.Chapters[j].Position
		})

		for _, ch := range node.Chapters {
			for _, q := range m.quizzes {
				if q.ChapterID == ch.ID && q.Status == Published {
					node.Quizzes = append(node.Quizzes, q)
				}
			}
		}

		for _, cs := range m.caseStudies {
			if cs.CourseID == c.ID && cs.Status == Published {
				study := cs
				node.CaseStudy = &study
				break
			}
		}

		tree.Courses = append(tree.Courses, node)
	}

	return tree, nil
}

func (m *MemoryCatalog) QuizDetail(_ context.Context, quizID string) (*QuizDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quizzes[quizID]
	if !ok || q.Status != Published {
		return nil, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
	}

	blockID, err := m.blockForChapter(q.ChapterID)
	if err != nil {
		return nil, err
	}

	detail := &QuizDetail{Quiz: q, BlockID: blockID}
	for _, question := range m.questions {
		if question.QuizID == quizID && question.Status == Published {
			detail.Questions = append(detail.Questions, question)
		}
	}
	sort.Slice(detail.Questions, func(i, j int) bool {
		return detail.Questions[i].Position < detail.Questions[j].Position
	})

	return detail, nil
}

func (m *MemoryCatalog) CaseStudyDetail(_ context.Context, caseStudyID string) (*CaseStudyDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cs, ok := m.caseStudies[caseStudyID]
	if !ok || cs.Status != Published {
		return nil, fmt.Errorf("case study %s: %w", caseStudyID, ErrNotFound)
	}

	course, ok := m.courses[cs.CourseID]
	if !ok || course.Status != Published {
		return nil, fmt.Errorf("course %s: %w", cs.CourseID, ErrNotFound)
	}

	return &CaseStudyDetail{CaseStudy: cs, BlockID: course.BlockID}, nil
}

// blockForChapter resolves chapter → course → block, requiring every hop to
// be published. Callers must hold the read lock.
func (m *MemoryCatalog) blockForChapter(chapterID string) (string, error) {
	ch, ok := m.chapters[chapterID]
	if !ok || ch.Status != Published {
		return "", fmt.Errorf("chapter %s: %w", chapterID, ErrNotFound)
	}
	course, ok := m.courses[ch.CourseID]
	if !ok || course.Status != Published {
		return "", fmt.Errorf("course %s: %w", ch.CourseID, ErrNotFound)
	}
	return course.BlockID, nil
}

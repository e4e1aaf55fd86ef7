// Package catalog is the read-only boundary to the content-authoring store.
// It serves curriculum definitions (program → block → course → chapter with
// optional quiz, plus one case study per course) and filters out anything
// not published, so the progression engine never sees unpublished content.
package catalog

// Lifecycle is the publication state of a curriculum entity. Authoring uses
// soft lifecycle flags instead of deletion; only published entities count
// toward progression.
type Lifecycle string

const (
	Published   Lifecycle = "published"
	Unpublished Lifecycle = "unpublished"
)

// ContentType describes what kind of material a chapter holds.
type ContentType string

const (
	ContentText         ContentType = "text"
	ContentVideo        ContentType = "video"
	ContentPresentation ContentType = "presentation"
)

// QuestionKind describes how a quiz question is answered and scored.
type QuestionKind string

const (
	// ChoiceSingle has exactly one correct option.
	ChoiceSingle QuestionKind = "choice_single"
	// ChoiceMultiple is correct only when the given set equals the
	// correct set exactly. No partial credit.
	ChoiceMultiple QuestionKind = "choice_multiple"
	// TrueFalse behaves like ChoiceSingle with two options.
	TrueFalse QuestionKind = "true_false"
	// Open has no automatic correctness; it contributes zero points
	// unless graded elsewhere.
	Open QuestionKind = "open"
	// Attachment is an upload question, scored like Open.
	Attachment QuestionKind = "attachment"
)

// Program is a full curriculum a learner enrolls in.
type Program struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Status Lifecycle `yaml:"status"`
}

// Block is a competency unit, the unit of sequential gating. SequenceNumber
// is unique within a program and starts at 1.
type Block struct {
	ID             string    `yaml:"id"`
	ProgramID      string    `yaml:"program_id"`
	SequenceNumber int       `yaml:"sequence_number"`
	Name           string    `yaml:"name"`
	Status         Lifecycle `yaml:"status"`
}

// Course is an ordered child of a block.
type Course struct {
	ID       string    `yaml:"id"`
	BlockID  string    `yaml:"block_id"`
	Position int       `yaml:"position"`
	Name     string    `yaml:"name"`
	Status   Lifecycle `yaml:"status"`
}

// Chapter is an ordered child of a course with at most one quiz.
type Chapter struct {
	ID          string      `yaml:"id"`
	CourseID    string      `yaml:"course_id"`
	Position    int         `yaml:"position"`
	Name        string      `yaml:"name"`
	ContentType ContentType `yaml:"content_type"`
	Status      Lifecycle   `yaml:"status"`
}

// Quiz is attached to a single chapter.
type Quiz struct {
	ID        string    `yaml:"id"`
	ChapterID string    `yaml:"chapter_id"`
	Name      string    `yaml:"name"`
	Status    Lifecycle `yaml:"status"`
}

// Question belongs to a quiz. CorrectOptions holds the correctness key for
// choice questions; it is empty for open and attachment questions.
type Question struct {
	ID             string       `yaml:"id"`
	QuizID         string       `yaml:"quiz_id"`
	Position       int          `yaml:"position"`
	Kind           QuestionKind `yaml:"kind"`
	Points         int          `yaml:"points"`
	CorrectOptions []string     `yaml:"correct_options"`
	Status         Lifecycle    `yaml:"status"`
}

// CaseStudy is a hand-graded assignment shared at the course level.
type CaseStudy struct {
	ID       string    `yaml:"id"`
	CourseID string    `yaml:"course_id"`
	Name     string    `yaml:"name"`
	Status   Lifecycle `yaml:"status"`
}

// CourseNode is a course with its published children, assembled by one
// batch read.
type CourseNode struct {
	Course    Course
	Chapters  []Chapter
	Quizzes   []Quiz
	CaseStudy *CaseStudy
}

// BlockTree is a block with its published course tree. The completion
// calculator consumes it whole instead of issuing per-row lookups.
type BlockTree struct {
	Block   Block
	Courses []CourseNode
}

// AllChapters returns every published chapter in the tree.
func (t *BlockTree) AllChapters() []Chapter {
	var out []Chapter
	for _, c := range t.Courses {
		out = append(out, c.Chapters...)
	}
	return out
}

// AllQuizzes returns every published quiz in the tree.
func (t *BlockTree) AllQuizzes() []Quiz {
	var out []Quiz
	for _, c := range t.Courses {
		out = append(out, c.Quizzes...)
	}
	return out
}

// AllCaseStudies returns every published case study in the tree.
func (t *BlockTree) AllCaseStudies() []CaseStudy {
	var out []CaseStudy
	for _, c := range t.Courses {
		if c.CaseStudy != nil {
			out = append(out, *c.CaseStudy)
		}
	}
	return out
}

// HasChapter reports whether the tree contains the published chapter.
func (t *BlockTree) HasChapter(chapterID string) bool {
	for _, ch := range t.AllChapters() {
		if ch.ID == chapterID {
			return true
		}
	}
	return false
}

// QuizDetail is a quiz with its active questions and the block it rolls up
// to, resolved in one catalog call.
type QuizDetail struct {
	Quiz      Quiz
	BlockID   string
	Questions []Question
}

// MaxPoints is the total point pool of the quiz. Zero-point and ungraded
// question kinds still contribute their configured points to the pool.
func (d *QuizDetail) MaxPoints() int {
	total := 0
	for _, q := range d.Questions {
		total += q.Points
	}
	return total
}

// Question returns the active question with the given ID.
func (d *QuizDetail) Question(id string) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// CaseStudyDetail is a case study with the block it rolls up to.
type CaseStudyDetail struct {
	CaseStudy CaseStudy
	BlockID   string
}

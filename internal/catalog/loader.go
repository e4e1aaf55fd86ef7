package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// programDoc is the on-disk shape of a program file. The nested layout
// mirrors how authors think about a curriculum; Load flattens it into the
// catalog's entity maps.
type programDoc struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Status Lifecycle  `yaml:"status"`
	Blocks []blockDoc `yaml:"blocks"`
}

type blockDoc struct {
	ID             string      `yaml:"id"`
	SequenceNumber int         `yaml:"sequence_number"`
	Name           string      `yaml:"name"`
	Status         Lifecycle   `yaml:"status"`
	Courses        []courseDoc `yaml:"courses"`
}

type courseDoc struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Status    Lifecycle     `yaml:"status"`
	CaseStudy *caseStudyDoc `yaml:"case_study"`
	Chapters  []chapterDoc  `yaml:"chapters"`
}

type caseStudyDoc struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Status Lifecycle `yaml:"status"`
}

type chapterDoc struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	ContentType ContentType `yaml:"content_type"`
	Status      Lifecycle   `yaml:"status"`
	Quiz        *quizDoc    `yaml:"quiz"`
}

type quizDoc struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Status    Lifecycle     `yaml:"status"`
	Questions []questionDoc `yaml:"questions"`
}

type questionDoc struct {
	ID             string       `yaml:"id"`
	Kind           QuestionKind `yaml:"kind"`
	Points         int          `yaml:"points"`
	CorrectOptions []string     `yaml:"correct_options"`
	Status         Lifecycle    `yaml:"status"`
}

// Load reads every program YAML file under rootDir into a MemoryCatalog.
// Each document is validated against the program schema before it is
// accepted; an invalid file fails the whole load.
func Load(rootDir string) (*MemoryCatalog, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(programSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling program schema: %w", err)
	}

	cat := NewMemoryCatalog()
	programs := 0

	err = filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		if err := loadProgramFile(cat, schema, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		programs++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded", "dir", rootDir, "programs", programs)
	return cat, nil
}

func loadProgramFile(cat *MemoryCatalog, schema *gojsonschema.Schema, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Validate the raw document first so authoring errors carry schema
	// paths, not unmarshal panics.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid program document: %s", strings.Join(msgs, "; "))
	}

	var doc programDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}

	flatten(cat, doc)
	return nil
}

// flatten writes a nested program document into the catalog's flat maps,
// defaulting omitted statuses to published and omitted points to 1.
func flatten(cat *MemoryCatalog, doc programDoc) {
	cat.AddProgram(Program{
		ID:     doc.ID,
		Name:   doc.Name,
		Status: defaultStatus(doc.Status),
	})

	for _, b := range doc.Blocks {
		cat.AddBlock(Block{
			ID:             b.ID,
			ProgramID:      doc.ID,
			SequenceNumber: b.SequenceNumber,
			Name:           b.Name,
			Status:         defaultStatus(b.Status),
		})

		for ci, c := range b.Courses {
			cat.AddCourse(Course{
				ID:       c.ID,
				BlockID:  b.ID,
				Position: ci,
				Name:     c.Name,
				Status:   defaultStatus(c.Status),
			})

			if c.CaseStudy != nil {
				cat.AddCaseStudy(CaseStudy{
					ID:       c.CaseStudy.ID,
					CourseID: c.ID,
					Name:     c.CaseStudy.Name,
					Status:   defaultStatus(c.CaseStudy.Status),
				})
			}

			for chi, ch := range c.Chapters {
				contentType := ch.ContentType
				if contentType == "" {
					contentType = ContentText
				}
				cat.AddChapter(Chapter{
					ID:          ch.ID,
					CourseID:    c.ID,
					Position:    chi,
					Name:        ch.Name,
					ContentType: contentType,
					Status:      defaultStatus(ch.Status),
				})

				if ch.Quiz == nil {
					continue
				}
				cat.AddQuiz(Quiz{
					ID:        ch.Quiz.ID,
					ChapterID: ch.ID,
					Name:      ch.Quiz.Name,
					Status:    defaultStatus(ch.Quiz.Status),
				})
				for qi, q := range ch.Quiz.Questions {
					points := q.Points
					if points == 0 {
						points = 1
					}
					cat.AddQuestion(Question{
						ID:             q.ID,
						QuizID:         ch.Quiz.ID,
						Position:       qi,
						Kind:           q.Kind,
						Points:         points,
						CorrectOptions: q.CorrectOptions,
						Status:         defaultStatus(q.Status),
					})
				}
			}
		}
	}
}

func defaultStatus(s Lifecycle) Lifecycle {
	if s == "" {
		return Published
	}
	return s
}

package catalog_test

import (
	"errors"
	"testing"

	"github.com/openlms/progression/internal/catalog"
)

func seedCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()
	cat.AddProgram(catalog.Program{ID: "prog", Name: "Program", Status: catalog.Published})
	cat.AddBlock(catalog.Block{ID: "b2", ProgramID: "prog", SequenceNumber: 2, Name: "Second", Status: catalog.Published})
	cat.AddBlock(catalog.Block{ID: "b1", ProgramID: "prog", SequenceNumber: 1, Name: "First", Status: catalog.Published})
	cat.AddBlock(catalog.Block{ID: "b3", ProgramID: "prog", SequenceNumber: 3, Name: "Hidden", Status: catalog.Unpublished})
	cat.AddCourse(catalog.Course{ID: "c1", BlockID: "b1", Position: 0, Name: "Course", Status: catalog.Published})
	cat.AddChapter(catalog.Chapter{ID: "ch1", CourseID: "c1", Position: 0, Name: "Chapter", ContentType: catalog.ContentText, Status: catalog.Published})
	cat.AddChapter(catalog.Chapter{ID: "ch2", CourseID: "c1", Position: 1, Name: "Draft", ContentType: catalog.ContentText, Status: catalog.Unpublished})
	cat.AddQuiz(catalog.Quiz{ID: "q1", ChapterID: "ch1", Name: "Quiz", Status: catalog.Published})
	cat.AddQuestion(catalog.Question{ID: "qq1", QuizID: "q1", Kind: catalog.ChoiceSingle, Points: 1, CorrectOptions: []string{"a"}, Status: catalog.Published})
	cat.AddQuestion(catalog.Question{ID: "qq2", QuizID: "q1", Kind: catalog.ChoiceSingle, Points: 1, CorrectOptions: []string{"b"}, Status: catalog.Unpublished})
	cat.AddCaseStudy(catalog.CaseStudy{ID: "cs1", CourseID: "c1", Name: "Case", Status: catalog.Published})
	return cat
}

func TestMemoryCatalog_BlocksOrdered(t *testing.T) {
	cat := seedCatalog()

	blocks, err := cat.Blocks(t.Context(), "prog")
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("Blocks() = %d, want 2 published", len(blocks))
	}
	if blocks[0].ID != "b1" || blocks[1].ID != "b2" {
		t.Errorf("order = %s, %s; want b1, b2", blocks[0].ID, blocks[1].ID)
	}
}

func TestMemoryCatalog_UnknownProgram(t *testing.T) {
	cat := seedCatalog()

	_, err := cat.Blocks(t.Context(), "nope")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Blocks(nope) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCatalog_BlockTreeFiltersUnpublished(t *testing.T) {
	cat := seedCatalog()

	tree, err := cat.BlockTree(t.Context(), "b1")
	if err != nil {
		t.Fatalf("BlockTree() error = %v", err)
	}

	if got := len(tree.AllChapters()); got != 1 {
		t.Errorf("AllChapters() = %d, want 1 (draft filtered)", got)
	}
	if !tree.HasChapter("ch1") {
		t.Error("HasChapter(ch1) = false")
	}
	if tree.HasChapter("ch2") {
		t.Error("HasChapter(ch2) = true for unpublished chapter")
	}

	_, err = cat.BlockTree(t.Context(), "b3")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("BlockTree(unpublished) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCatalog_QuizDetail(t *testing.T) {
	cat := seedCatalog()

	detail, err := cat.QuizDetail(t.Context(), "q1")
	if err != nil {
		t.Fatalf("QuizDetail() error = %v", err)
	}
	if detail.BlockID != "b1" {
		t.Errorf("BlockID = %q, want b1", detail.BlockID)
	}
	if len(detail.Questions) != 1 {
		t.Errorf("Questions = %d, want 1 active", len(detail.Questions))
	}
	if _, ok := detail.Question("qq2"); ok {
		t.Error("Question(qq2) found, want filtered out")
	}
}

func TestMemoryCatalog_CaseStudyDetail(t *testing.T) {
	cat := seedCatalog()

	detail, err := cat.CaseStudyDetail(t.Context(), "cs1")
	if err != nil {
		t.Fatalf("CaseStudyDetail() error = %v", err)
	}
	if detail.BlockID != "b1" {
		t.Errorf("BlockID = %q, want b1", detail.BlockID)
	}

	_, err = cat.CaseStudyDetail(t.Context(), "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("CaseStudyDetail(missing) error = %v, want ErrNotFound", err)
	}
}

package progression_test

import (
	"github.com/openlms/progression/internal/catalog"
)

// Fixture IDs for the two-block test program.
const (
	programID = "11111111-0000-0000-0000-000000000001"

	block1 = "22222222-0000-0000-0000-000000000001"
	block2 = "22222222-0000-0000-0000-000000000002"

	course1 = "33333333-0000-0000-0000-000000000001"
	course2 = "33333333-0000-0000-0000-000000000002"

	chapter1a = "44444444-0000-0000-0000-000000000001"
	chapter1b = "44444444-0000-0000-0000-000000000002"
	chapter2a = "44444444-0000-0000-0000-000000000003"

	quiz1 = "55555555-0000-0000-0000-000000000001"
	quiz2 = "55555555-0000-0000-0000-000000000002"

	question1 = "66666666-0000-0000-0000-000000000001"
	question2 = "66666666-0000-0000-0000-000000000002"
	question3 = "66666666-0000-0000-0000-000000000003"

	caseStudy1 = "77777777-0000-0000-0000-000000000001"
)

// testCatalog builds a two-block program: block 1 has one course with two
// chapters, a three-question quiz on the first chapter and a case study;
// block 2 has one course with a single chapter and quiz.
func testCatalog() *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog().
		AddProgram(catalog.Program{ID: programID, Name: "Clinical Foundations", Status: catalog.Published}).
		AddBlock(catalog.Block{ID: block1, ProgramID: programID, SequenceNumber: 1, Name: "Anatomy", Status: catalog.Published}).
		AddBlock(catalog.Block{ID: block2, ProgramID: programID, SequenceNumber: 2, Name: "Physiology", Status: catalog.Published}).
		AddCourse(catalog.Course{ID: course1, BlockID: block1, Position: 1, Name: "Skeletal System", Status: catalog.Published}).
		AddCourse(catalog.Course{ID: course2, BlockID: block2, Position: 1, Name: "Cardiac Function", Status: catalog.Published}).
		AddChapter(catalog.Chapter{ID: chapter1a, CourseID: course1, Position: 1, Name: "Bones", ContentType: catalog.ContentText, Status: catalog.Published}).
		AddChapter(catalog.Chapter{ID: chapter1b, CourseID: course1, Position: 2, Name: "Joints", ContentType: catalog.ContentVideo, Status: catalog.Published}).
		AddChapter(catalog.Chapter{ID: chapter2a, CourseID: course2, Position: 1, Name: "The Heart", ContentType: catalog.ContentText, Status: catalog.Published}).
		AddQuiz(catalog.Quiz{ID: quiz1, ChapterID: chapter1a, Name: "Bones Quiz", Status: catalog.Published}).
		AddQuiz(catalog.Quiz{ID: quiz2, ChapterID: chapter2a, Name: "Heart Quiz", Status: catalog.Published}).
		AddQuestion(catalog.Question{ID: question1, QuizID: quiz1, Position: 1, Kind: catalog.ChoiceSingle, Points: 2, CorrectOptions: []string{"opt-a"}, Status: catalog.Published}).
		AddQuestion(catalog.Question{ID: question2, QuizID: quiz1, Position: 2, Kind: catalog.ChoiceMultiple, Points: 3, CorrectOptions: []string{"opt-b", "opt-c"}, Status: catalog.Published}).
		AddQuestion(catalog.Question{ID: question3, QuizID: quiz1, Position: 3, Kind: catalog.Open, Points: 1, Status: catalog.Published}).
		AddQuestion(catalog.Question{ID: "66666666-0000-0000-0000-000000000004", QuizID: quiz2, Position: 1, Kind: catalog.TrueFalse, Points: 1, CorrectOptions: []string{"true"}, Status: catalog.Published}).
		AddCaseStudy(catalog.CaseStudy{ID: caseStudy1, CourseID: course1, Name: "Fracture Case", Status: catalog.Published})
}

package progression_test

import (
	"testing"
	"time"

	"github.com/openlms/progression/internal/progression"
)

func newEngine() *progression.Engine {
	return progression.NewEngine(progression.EngineConfig{
		Catalog: testCatalog(),
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	eng := newEngine()
	ctx := t.Context()

	// Fresh learner: block 1 open, block 2 gated.
	statuses, err := eng.ProgramBlocks(ctx, learnerA, programID)
	if err != nil {
		t.Fatalf("ProgramBlocks() error = %v", err)
	}
	if !statuses[0].Unlocked || statuses[1].Unlocked {
		t.Fatalf("fresh gate state = %v/%v, want unlocked/locked", statuses[0].Unlocked, statuses[1].Unlocked)
	}

	// Work through block 1.
	for _, chapterID := range []string{chapter1a, chapter1b} {
		err := eng.RecordActivity(ctx, progression.ActivityInput{
			LearnerID: learnerA, BlockID: block1, ChapterID: chapterID,
			Kind: progression.KindView, MinutesDelta: 30,
		})
		if err != nil {
			t.Fatalf("RecordActivity() error = %v", err)
		}
	}
	now := time.Now()
	result, err := eng.SubmitAttempt(ctx, learnerA, quiz1, map[string]progression.AnswerPayload{
		question1: {Selected: []string{"opt-a"}},
		question2: {Selected: []string{"opt-b", "opt-c"}},
	}, now.Add(-10*time.Minute), now)
	if err != nil {
		t.Fatalf("SubmitAttempt() error = %v", err)
	}
	if _, err := eng.SubmitCaseStudy(ctx, learnerA, caseStudy1, "case answer", nil); err != nil {
		t.Fatalf("SubmitCaseStudy() error = %v", err)
	}

	// Block 1 done, block 2 unlocked.
	statuses, err = eng.ProgramBlocks(ctx, learnerA, programID)
	if err != nil {
		t.Fatalf("ProgramBlocks() error = %v", err)
	}
	if !statuses[0].Done {
		t.Error("block 1 not done after full activity")
	}
	if !statuses[1].Unlocked {
		t.Error("block 2 still locked after block 1 done")
	}

	completion, err := eng.BlockCompletion(ctx, learnerA, block1)
	if err != nil {
		t.Fatalf("BlockCompletion() error = %v", err)
	}
	if completion.Percent != 100 {
		t.Errorf("Percent = %d, want 100", completion.Percent)
	}
	if completion.Detail.MinutesSpent != 60 {
		t.Errorf("MinutesSpent = %d, want 60", completion.Detail.MinutesSpent)
	}

	// Transcript carries the quiz grade written during SubmitAttempt.
	transcript, err := eng.BuildTranscript(ctx, learnerA, programID)
	if err != nil {
		t.Fatalf("BuildTranscript() error = %v", err)
	}
	want := float64(result.GradeOn20)
	if transcript.PerBlock[0].LearnerAverage == nil || *transcript.PerBlock[0].LearnerAverage != want {
		t.Errorf("block 1 learner average = %v, want %v", transcript.PerBlock[0].LearnerAverage, want)
	}

	view, err := eng.GetSubmission(ctx, learnerA, caseStudy1)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if view.State != progression.StateUngraded {
		t.Errorf("submission state = %q, want ungraded", view.State)
	}
}

func TestEngine_DefaultsToMemoryStore(t *testing.T) {
	eng := progression.NewEngine(progression.EngineConfig{Catalog: testCatalog()})

	err := eng.RecordActivity(t.Context(), progression.ActivityInput{
		LearnerID: learnerA, BlockID: block1, MinutesDelta: 5,
	})
	if err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}
}

package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlms/progression/internal/catalog"
	"github.com/openlms/progression/internal/platform/cache"
)

const defaultCacheTTL = 2 * time.Minute

// EngineConfig configures the progression engine. Store defaults to an
// in-memory store; Cache is optional and only speeds up reads.
type EngineConfig struct {
	Catalog     catalog.Catalog
	Store       Store
	Cache       *cache.Cache
	CacheTTL    time.Duration
	OverdueDays int
}

// Engine is the single entry point the API layer talks to. Writes go
// straight to the store and invalidate the learner's cached reads; reads
// are recomputed from the ledger on every cache miss, so derived state can
// never go stale.
type Engine struct {
	catalog    catalog.Catalog
	store      Store
	cache      *cache.Cache
	cacheTTL   time.Duration
	recorder   *Recorder
	grader     *Grader
	tracker    *Tracker
	resolver   *Resolver
	aggregator *Aggregator
}

// NewEngine wires the component set behind one facade.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	calc := NewCalculator(cfg.Catalog, store)
	return &Engine{
		catalog:    cfg.Catalog,
		store:      store,
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		recorder:   NewRecorder(cfg.Catalog, store),
		grader:     NewGrader(cfg.Catalog, store),
		tracker:    NewTracker(cfg.Catalog, store, cfg.OverdueDays),
		resolver:   NewResolver(cfg.Catalog, calc),
		aggregator: NewAggregator(cfg.Catalog, store),
	}
}

// RecordActivity appends a chapter view/completion or study time and drops
// the learner's cached reads.
func (e *Engine) RecordActivity(ctx context.Context, in ActivityInput) error {
	if err := e.recorder.RecordActivity(ctx, in); err != nil {
		return err
	}
	e.invalidate(ctx, in.LearnerID)
	return nil
}

// SubmitAttempt grades and stores a quiz attempt.
func (e *Engine) SubmitAttempt(ctx context.Context, learnerID, quizID string, answers map[string]AnswerPayload, startedAt, finishedAt time.Time) (*AttemptResult, error) {
	result, err := e.grader.SubmitAttempt(ctx, learnerID, quizID, answers, startedAt, finishedAt)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, learnerID)
	// The cohort columns of other learners' transcripts changed too.
	e.invalidateTranscripts(ctx)
	return result, nil
}

// SubmitCaseStudy records or replaces the learner's case study submission.
func (e *Engine) SubmitCaseStudy(ctx context.Context, learnerID, caseStudyID, answers string, attachments []string) (*SubmissionView, error) {
	view, err := e.tracker.Submit(ctx, learnerID, caseStudyID, answers, attachments)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, learnerID)
	return view, nil
}

// GetSubmission returns the learner's submission with its correction state.
func (e *Engine) GetSubmission(ctx context.Context, learnerID, caseStudyID string) (*SubmissionView, error) {
	return e.tracker.GetSubmission(ctx, learnerID, caseStudyID)
}

// ProgramBlocks returns completion and gate state for every block of the
// program, first from cache, recomputed on miss.
func (e *Engine) ProgramBlocks(ctx context.Context, learnerID, programID string) ([]BlockStatus, error) {
	key := fmt.Sprintf("prog:%s:blocks:%s", learnerID, programID)
	var cached []BlockStatus
	if e.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	statuses, err := e.resolver.ResolveProgram(ctx, learnerID, programID)
	if err != nil {
		return nil, err
	}
	e.cacheSet(ctx, key, statuses)
	return statuses, nil
}

// BlockCompletion computes a single block's completion standing.
func (e *Engine) BlockCompletion(ctx context.Context, learnerID, blockID string) (*Completion, error) {
	return e.resolver.calculator.ComputeCompletion(ctx, learnerID, blockID)
}

// BuildTranscript builds the learner's normalized 20-point transcript.
func (e *Engine) BuildTranscript(ctx context.Context, learnerID, programID string) (*Transcript, error) {
	key := fmt.Sprintf("prog:%s:transcript:%s", learnerID, programID)
	var cached Transcript
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	transcript, err := e.aggregator.BuildTranscript(ctx, learnerID, programID)
	if err != nil {
		return nil, err
	}
	e.cacheSet(ctx, key, transcript)
	return transcript, nil
}

// cacheGet reports whether the key was served from cache. Cache failures
// only log; the read falls through to the store.
func (e *Engine) cacheGet(ctx context.Context, key string, dest any) bool {
	if e.cache == nil {
		return false
	}
	err := e.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	return false
}

func (e *Engine) cacheSet(ctx context.Context, key string, value any) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetJSON(ctx, key, value, e.cacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

func (e *Engine) invalidate(ctx context.Context, learnerID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.DeleteMatching(ctx, "prog:"+learnerID+":*"); err != nil {
		slog.Warn("cache invalidation failed", "learner_id", learnerID, "error", err)
	}
}

func (e *Engine) invalidateTranscripts(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.DeleteMatching(ctx, "prog:*:transcript:*"); err != nil {
		slog.Warn("transcript cache invalidation failed", "error", err)
	}
}

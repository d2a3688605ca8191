package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
	"github.com/cuker/dockit/internal/logger"
)

// DefaultReindexBatchSize is the number of documents evaluated per checkpoint.
const DefaultReindexBatchSize = 100

// ReindexOptions tune the reindex job.
type ReindexOptions struct {
	// BatchSize is the number of documents evaluated between checkpoints.
	BatchSize int

	// BatchesPerSecond throttles the job. Zero or less means unthrottled.
	BatchesPerSecond float64
}

// indexEvaluator evaluates one document against one index.
type indexEvaluator interface {
	EvaluateQueryIndex(ctx context.Context, idx *domain.RegisteredIndex, q domain.QueryIndex,
		docID string, data map[string]any) (bool, error)
}

// ReindexJob re-evaluates every document of a collection against an index in ID order,
// checkpointing its cursor after each batch so an interrupted pass can resume.
type ReindexJob struct {
	docs      driven.DocumentStore
	states    driven.ReindexStateStore
	eval      indexEvaluator
	batchSize int
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewReindexJob creates a reindex job.
func NewReindexJob(
	docs driven.DocumentStore,
	states driven.ReindexStateStore,
	eval indexEvaluator,
	opts ReindexOptions,
) *ReindexJob {
	j := &ReindexJob{
		docs:      docs,
		states:    states,
		eval:      eval,
		batchSize: opts.BatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if j.batchSize <= 0 {
		j.batchSize = DefaultReindexBatchSize
	}
	if opts.BatchesPerSecond > 0 {
		j.limiter = rate.NewLimiter(rate.Limit(opts.BatchesPerSecond), 1)
	}
	return j
}

// Start records a fresh checkpoint for idx, discarding any previous progress.
func (j *ReindexJob) Start(ctx context.Context, idx *domain.RegisteredIndex) (*domain.ReindexState, error) {
	now := j.now()
	state := domain.ReindexState{
		IndexID:   idx.ID,
		QueryHash: idx.QueryHash,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := j.states.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save reindex state: %w", err)
	}
	return &state, nil
}

// State returns the checkpoint of an index.
func (j *ReindexJob) State(ctx context.Context, indexID string) (*domain.ReindexState, error) {
	return j.states.Get(ctx, indexID)
}

// Discard drops the checkpoint of an index.
func (j *ReindexJob) Discard(ctx context.Context, indexID string) error {
	if err := j.states.Delete(ctx, indexID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete reindex state: %w", err)
	}
	return nil
}

// Run evaluates documents from the checkpoint onwards until the collection is exhausted,
// the context is cancelled, or an evaluation fails. A missing checkpoint, or one recorded
// for a different definition hash, restarts from the first document.
func (j *ReindexJob) Run(ctx context.Context, idx *domain.RegisteredIndex) (*domain.ReindexState, error) {
	state, err := j.states.Get(ctx, idx.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if state, err = j.Start(ctx, idx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("get reindex state: %w", err)
	case state.QueryHash != idx.QueryHash:
		logger.Debug("Discarding stale reindex checkpoint for %s", idx.Name)
		if state, err = j.Start(ctx, idx); err != nil {
			return nil, err
		}
	}
	if state.Done {
		return state, nil
	}

	log := logger.Logger().With().Str("collection", idx.Collection).Str("index", idx.Name).Logger()
	log.Info().Str("cursor", state.Cursor).Int("processed", state.Processed).Msg("reindex started")

	for {
		if j.limiter != nil {
			if err := j.limiter.Wait(ctx); err != nil {
				return state, err
			}
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		docs, err := j.docs.ListDocumentsAfter(ctx, idx.Collection, state.Cursor, j.batchSize)
		if err != nil {
			return state, fmt.Errorf("list documents after %q: %w", state.Cursor, err)
		}

		for i := range docs {
			doc := &docs[i]
			if _, err := j.eval.EvaluateQueryIndex(ctx, idx, idx.Definition, doc.ID, doc.Data); err != nil {
				if cerr := j.checkpoint(ctx, state); cerr != nil {
					log.Warn().Err(cerr).Str("cursor", state.Cursor).Msg("saving reindex checkpoint failed")
				}
				return state, fmt.Errorf("reindex %s at document %s: %w", idx.Name, doc.ID, err)
			}
			state.Cursor = doc.ID
			state.Processed++
		}

		state.Done = len(docs) < j.batchSize
		if err := j.checkpoint(ctx, state); err != nil {
			return state, err
		}
		if state.Done {
			log.Info().Int("processed", state.Processed).Msg("reindex complete")
			return state, nil
		}
		log.Debug().Str("cursor", state.Cursor).Int("processed", state.Processed).Msg("reindex checkpoint")
	}
}

func (j *ReindexJob) checkpoint(ctx context.Context, state *domain.ReindexState) error {
	state.UpdatedAt = j.now()
	if err := j.states.Save(ctx, *state); err != nil {
		return fmt.Errorf("save reindex state: %w", err)
	}
	return nil
}

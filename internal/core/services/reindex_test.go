package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuker/dockit/internal/adapters/driven/storage/memory"
	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/logger"
)

// recordingEvaluator records evaluated document IDs and can interrupt the run.
type recordingEvaluator struct {
	seen    []string
	onEval  func(docID string) error
	include bool
}

func (e *recordingEvaluator) EvaluateQueryIndex(
	_ context.Context,
	_ *domain.RegisteredIndex,
	_ domain.QueryIndex,
	docID string,
	_ map[string]any,
) (bool, error) {
	e.seen = append(e.seen, docID)
	if e.onEval != nil {
		if err := e.onEval(docID); err != nil {
			return false, err
		}
	}
	return e.include, nil
}

func seedDocuments(t *testing.T, store *memory.DocumentStore, collection string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.SaveDocument(context.Background(), &domain.Document{
			ID:         id,
			Collection: collection,
			Data:       map[string]any{"n": id},
		}))
	}
}

func testIndex() *domain.RegisteredIndex {
	return &domain.RegisteredIndex{
		ID:         "idx-1",
		Name:       "by_n",
		Collection: "items",
		QueryHash:  "hash-1",
		Definition: domain.QueryIndex{Collection: "items", Params: []domain.IndexParam{{Path: "n", Key: "n"}}},
	}
}

func TestReindexJob_RunVisitsEveryDocumentInOrder(t *testing.T) {
	docs := memory.NewDocumentStore()
	states := memory.NewReindexStateStore()
	seedDocuments(t, docs, "items", "e", "a", "c", "b", "d")
	seedDocuments(t, docs, "other", "z")

	eval := &recordingEvaluator{}
	job := NewReindexJob(docs, states, eval, ReindexOptions{BatchSize: 2})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, 5, state.Processed)
	assert.Equal(t, "e", state.Cursor)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, eval.seen)

	stored, err := states.Get(context.Background(), "idx-1")
	require.NoError(t, err)
	assert.True(t, stored.Done)
	assert.Equal(t, "hash-1", stored.QueryHash)
}

func TestReindexJob_ExactBatchMultiple(t *testing.T) {
	docs := memory.NewDocumentStore()
	seedDocuments(t, docs, "items", "a", "b", "c", "d")

	eval := &recordingEvaluator{}
	job := NewReindexJob(docs, memory.NewReindexStateStore(), eval, ReindexOptions{BatchSize: 2})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, 4, state.Processed)
	assert.Len(t, eval.seen, 4)
}

func TestReindexJob_EmptyCollection(t *testing.T) {
	job := NewReindexJob(memory.NewDocumentStore(), memory.NewReindexStateStore(), &recordingEvaluator{}, ReindexOptions{})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Zero(t, state.Processed)
	assert.Empty(t, state.Cursor)
}

func TestReindexJob_CancelAndResume(t *testing.T) {
	docs := memory.NewDocumentStore()
	states := memory.NewReindexStateStore()
	seedDocuments(t, docs, "items", "a", "b", "c", "d", "e")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eval := &recordingEvaluator{onEval: func(docID string) error {
		if docID == "b" {
			cancel()
		}
		return nil
	}}
	job := NewReindexJob(docs, states, eval, ReindexOptions{BatchSize: 2})
	idx := testIndex()

	state, err := job.Run(ctx, idx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, state.Done)

	stored, err := states.Get(context.Background(), idx.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", stored.Cursor)
	assert.Equal(t, 2, stored.Processed)
	assert.False(t, stored.Done)

	eval.onEval = nil
	state, err = job.Run(context.Background(), idx)
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, 5, state.Processed)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, eval.seen, "resume continues after the cursor")
}

func TestReindexJob_StaleHashRestarts(t *testing.T) {
	docs := memory.NewDocumentStore()
	states := memory.NewReindexStateStore()
	seedDocuments(t, docs, "items", "a", "b", "c")

	require.NoError(t, states.Save(context.Background(), domain.ReindexState{
		IndexID:   "idx-1",
		QueryHash: "old-hash",
		Cursor:    "b",
		Processed: 2,
	}))

	eval := &recordingEvaluator{}
	job := NewReindexJob(docs, states, eval, ReindexOptions{})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, eval.seen)
	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, "hash-1", state.QueryHash)
}

func TestReindexJob_DoneStateIsNoop(t *testing.T) {
	docs := memory.NewDocumentStore()
	states := memory.NewReindexStateStore()
	seedDocuments(t, docs, "items", "a")

	require.NoError(t, states.Save(context.Background(), domain.ReindexState{
		IndexID: "idx-1", QueryHash: "hash-1", Cursor: "a", Processed: 1, Done: true,
	}))

	eval := &recordingEvaluator{}
	job := NewReindexJob(docs, states, eval, ReindexOptions{})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Empty(t, eval.seen)
}

func TestReindexJob_EvaluationErrorKeepsCheckpoint(t *testing.T) {
	docs := memory.NewDocumentStore()
	states := memory.NewReindexStateStore()
	seedDocuments(t, docs, "items", "a", "b", "c")

	boom := errors.New("boom")
	eval := &recordingEvaluator{onEval: func(docID string) error {
		if docID == "b" {
			return boom
		}
		return nil
	}}
	job := NewReindexJob(docs, states, eval, ReindexOptions{BatchSize: 10})

	_, err := job.Run(context.Background(), testIndex())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "at document b")

	stored, err := states.Get(context.Background(), "idx-1")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.Cursor)
	assert.Equal(t, 1, stored.Processed)
}

// unwritableStates rejects checkpoint saves once failSaves is set.
type unwritableStates struct {
	*memory.ReindexStateStore
	failSaves bool
}

func (s *unwritableStates) Save(ctx context.Context, state domain.ReindexState) error {
	if s.failSaves {
		return errors.New("state store read-only")
	}
	return s.ReindexStateStore.Save(ctx, state)
}

func TestReindexJob_EvaluationErrorLogsCheckpointFailure(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	defer func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	}()

	docs := memory.NewDocumentStore()
	states := &unwritableStates{ReindexStateStore: memory.NewReindexStateStore()}
	seedDocuments(t, docs, "items", "a", "b")

	boom := errors.New("boom")
	eval := &recordingEvaluator{onEval: func(docID string) error {
		if docID == "b" {
			return boom
		}
		return nil
	}}
	job := NewReindexJob(docs, states, eval, ReindexOptions{BatchSize: 10})
	_, err := job.Start(context.Background(), testIndex())
	require.NoError(t, err)
	states.failSaves = true

	_, err = job.Run(context.Background(), testIndex())
	require.ErrorIs(t, err, boom, "the evaluation error is returned, not the checkpoint error")
	assert.Contains(t, buf.String(), "[WARN] saving reindex checkpoint failed")
	assert.Contains(t, buf.String(), "state store read-only")
}

func TestReindexJob_Throttled(t *testing.T) {
	docs := memory.NewDocumentStore()
	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		ids = append(ids, fmt.Sprintf("doc-%02d", i))
	}
	seedDocuments(t, docs, "items", ids...)

	eval := &recordingEvaluator{}
	job := NewReindexJob(docs, memory.NewReindexStateStore(), eval, ReindexOptions{BatchSize: 2, BatchesPerSecond: 1000})

	state, err := job.Run(context.Background(), testIndex())
	require.NoError(t, err)
	assert.Equal(t, 6, state.Processed)
}

func TestReindexJob_StartAndDiscard(t *testing.T) {
	states := memory.NewReindexStateStore()
	job := NewReindexJob(memory.NewDocumentStore(), states, &recordingEvaluator{}, ReindexOptions{})
	ctx := context.Background()

	state, err := job.Start(ctx, testIndex())
	require.NoError(t, err)
	assert.False(t, state.Done)
	assert.Empty(t, state.Cursor)

	got, err := job.State(ctx, "idx-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.QueryHash)

	require.NoError(t, job.Discard(ctx, "idx-1"))
	require.NoError(t, job.Discard(ctx, "idx-1"))

	_, err = job.State(ctx, "idx-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisteredIndexManager_DeferredRegistration(t *testing.T) {
	h := newHarness(t, ReindexOptions{BatchSize: 1})
	ctx := context.Background()
	h.save(t, "articles", "a", map[string]any{"status": "published"})
	h.save(t, "articles", "b", map[string]any{"status": "published"})

	idx, outcome, err := h.manager.RegisterIndex(ctx, publishedIndex(), true)
	require.NoError(t, err)
	assert.Equal(t, domain.RegisterCreated, outcome)
	assert.Empty(t, h.indexDocs(t, idx))

	_, err = h.indexes.Query(ctx, "articles", "published", nil)
	assert.ErrorIs(t, err, domain.ErrReindexInProgress)

	state, err := h.indexes.Resume(ctx, "articles", "published")
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Equal(t, 2, state.Processed)

	docs, err := h.indexes.Query(ctx, "articles", "published", nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

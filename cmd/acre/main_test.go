package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/pipeline"
)

type recordingEventStore struct {
	replaced [][]models.ResolvedTransaction
	err      error
}

func (s *recordingEventStore) Replace(_ context.Context, events []models.ResolvedTransaction) error {
	if s.err != nil {
		return s.err
	}
	s.replaced = append(s.replaced, events)
	return nil
}

func TestCapturedEventsDelegatesAndRetains(t *testing.T) {
	store := &recordingEventStore{}
	captured := &capturedEvents{store: store}

	events := []models.ResolvedTransaction{
		{CanonicalKey: "125012345", MatchStage: models.StageExact},
	}
	require.NoError(t, captured.Replace(context.Background(), events))

	// The emit still reached the store and the set is retained for the
	// post-run publish.
	require.Len(t, store.replaced, 1)
	assert.Equal(t, events, captured.events)
}

func TestCapturedEventsWithoutStore(t *testing.T) {
	captured := &capturedEvents{}
	events := []models.ResolvedTransaction{{CanonicalKey: "125012345"}}

	require.NoError(t, captured.Replace(context.Background(), events))
	assert.Equal(t, events, captured.events)
}

func TestCapturedEventsPropagatesStoreError(t *testing.T) {
	store := &recordingEventStore{err: errors.New("db down")}
	captured := &capturedEvents{store: store}

	err := captured.Replace(context.Background(), []models.ResolvedTransaction{{CanonicalKey: "x"}})
	assert.Error(t, err)
}

func TestCombinedSourceConcatenatesInOrder(t *testing.T) {
	first := &staticTxnSource{txns: []models.Transaction{{RawParcelID: "1"}}}
	second := &staticTxnSource{txns: []models.Transaction{{RawParcelID: "2"}}}
	combined := &combinedSource{sources: []pipeline.TransactionSource{first, second}}

	txns, err := combined.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "1", txns[0].RawParcelID)
	assert.Equal(t, "2", txns[1].RawParcelID)
}

type staticTxnSource struct {
	txns []models.Transaction
	err  error
}

func (s *staticTxnSource) Transactions(_ context.Context) ([]models.Transaction, error) {
	return s.txns, s.err
}

func TestGlobFeed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_parcels.csv", "a_parcels.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	paths, err := globFeed(dir, "*parcels*.csv")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a_parcels.csv"), paths[0])

	_, err = globFeed(dir, "*CSV.zip")
	assert.Error(t, err)
}

package surrealdb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/models"
)

func newDocumentStore(t *testing.T) *DocumentStore {
	t.Helper()
	db := testDB(t)
	require.NoError(t, defineTables(context.Background(), db))
	return NewDocumentStore(db, testLogger())
}

func TestDocumentStoreSaveListDelete(t *testing.T) {
	store := newDocumentStore(t)
	ctx := context.Background()
	now := time.Now()

	chunks := []models.DocumentChunk{
		{UserID: "alice", Source: "notes.txt", ChunkIndex: 0, Content: "Apple earnings beat", CreatedAt: now},
		{UserID: "alice", Source: "notes.txt", ChunkIndex: 1, Content: "Services revenue grew", CreatedAt: now},
		{UserID: "bob", Source: "gold.txt", ChunkIndex: 0, Content: "Gold hedges inflation", CreatedAt: now},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.ListChunks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ChunkIndex)
	assert.Equal(t, "Services revenue grew", got[1].Content)
	assert.Equal(t, "alice_notes_txt_1", got[1].ID)

	// Re-ingesting the same source overwrites by index
	require.NoError(t, store.SaveChunks(ctx, []models.DocumentChunk{
		{UserID: "alice", Source: "notes.txt", ChunkIndex: 0, Content: "Revised", CreatedAt: now},
	}))
	got, err = store.ListChunks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Revised", got[0].Content)

	n, err := store.DeleteChunks(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = store.ListChunks(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, got)

	bob, err := store.ListChunks(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestDocumentStoreRejectsOversizedChunk(t *testing.T) {
	store := newDocumentStore(t)
	huge := models.DocumentChunk{UserID: "u", Source: "big", Content: strings.Repeat("x", maxCBORDocBytes+1)}
	assert.Error(t, store.SaveChunks(context.Background(), []models.DocumentChunk{huge}))
}

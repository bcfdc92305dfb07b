package surrealdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const chunkSelectFields = "chunk_id as id, user_id, source, chunk_index, content, created_at"

// maxCBORDocBytes is the maximum encoded document size for SurrealDB's CBOR wire format.
const maxCBORDocBytes = 10_000_000

// DocumentStore implements interfaces.DocumentStore using SurrealDB.
type DocumentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *surrealdb.DB, logger *common.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: logger}
}

// chunkRecordID is stable per (user, source, index) so re-ingesting a source overwrites its chunks.
func chunkRecordID(c models.DocumentChunk) (string, surrealmodels.RecordID) {
	id := safeID(c.UserID, c.Source, strconv.Itoa(c.ChunkIndex))
	return id, surrealmodels.NewRecordID("document_chunk", id)
}

func (s *DocumentStore) SaveChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	sql := `UPSERT $rid SET
		chunk_id = $chunk_id, user_id = $user_id, source = $source,
		chunk_index = $chunk_index, content = $content, created_at = $created_at`

	for _, c := range chunks {
		if len(c.Content) > maxCBORDocBytes {
			return fmt.Errorf("chunk %d of %s too large for storage: %d bytes", c.ChunkIndex, c.Source, len(c.Content))
		}
		id, rid := chunkRecordID(c)
		vars := map[string]any{
			"rid":         rid,
			"chunk_id":    id,
			"user_id":     c.UserID,
			"source":      c.Source,
			"chunk_index": c.ChunkIndex,
			"content":     c.Content,
			"created_at":  c.CreatedAt,
		}
		if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save chunk %d of %s: %w", c.ChunkIndex, c.Source, err)
		}
	}

	s.logger.Debug().Int("chunks", len(chunks)).Msg("Document chunks saved")
	return nil
}

func (s *DocumentStore) ListChunks(ctx context.Context, userID string) ([]models.DocumentChunk, error) {
	sql := "SELECT " + chunkSelectFields + " FROM document_chunk WHERE user_id = $user_id ORDER BY source ASC, chunk_index ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.DocumentChunk](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list document chunks: %w", err)
	}
	if results == nil || len(*results) == 0 || (*results)[0].Result == nil {
		return []models.DocumentChunk{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteChunks removes every chunk the user has ingested and returns the count.
func (s *DocumentStore) DeleteChunks(ctx context.Context, userID string) (int, error) {
	sql := "DELETE document_chunk WHERE user_id = $user_id RETURN BEFORE"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document chunks: %w", err)
	}

	count := 0
	if results != nil && len(*results) > 0 {
		count = len((*results)[0].Result)
	}
	return count, nil
}

// Compile-time check
var _ interfaces.DocumentStore = (*DocumentStore)(nil)

// Package documents ingests user documents into searchable chunks.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
	maxPDFTextChars     = 200_000
)

var (
	// ErrEmptyDocument is returned when a document has no text to ingest
	ErrEmptyDocument = errors.New("no text content to ingest")
	// ErrUnreadablePDF is returned when a PDF cannot be parsed
	ErrUnreadablePDF = errors.New("unreadable PDF")
)

// Service implements interfaces.DocumentService.
type Service struct {
	store     interfaces.DocumentStore
	logger    *common.Logger
	chunkSize int
	overlap   int
	now       func() time.Time
}

// NewService creates a document service with 500 character chunks overlapping by 100.
func NewService(store interfaces.DocumentStore, logger *common.Logger) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		now:       time.Now,
	}
}

// IngestText splits text into chunks and stores them under source.
// Re-ingesting a source overwrites its chunks by index.
func (s *Service) IngestText(ctx context.Context, userID, source, text string) (*models.IngestResult, error) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	chunks := SplitText(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	now := s.now()
	records := make([]models.DocumentChunk, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, models.DocumentChunk{
			UserID:     userID,
			Source:     source,
			ChunkIndex: i,
			Content:    c,
			CreatedAt:  now,
		})
	}
	if err := s.store.SaveChunks(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", source, err)
	}

	s.logger.Info().Str("user_id", userID).Str("source", source).Int("chunks", len(records)).Msg("Document ingested")
	return &models.IngestResult{Source: source, Chunks: len(records)}, nil
}

// IngestPDF extracts plain text from each page and ingests it.
func (s *Service) IngestPDF(ctx context.Context, userID, source string, data []byte) (*models.IngestResult, error) {
	text, err := extractPDFText(data)
	if err != nil {
		return nil, err
	}
	return s.IngestText(ctx, userID, source, text)
}

// Delete removes every chunk the user has ingested.
func (s *Service) Delete(ctx context.Context, userID string) (int, error) {
	n, err := s.store.DeleteChunks(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("user_id", userID).Int("chunks", n).Msg("Documents deleted")
	return n, nil
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > maxPDFTextChars {
			break
		}
	}
	return sb.String(), nil
}

// SplitText cuts text into chunks of at most size runes, each starting
// overlap runes before the previous one ended. Cuts prefer a paragraph,
// line or word boundary in the back half of the window.
func SplitText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = boundary(runes, start+size/2, end)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// boundary finds the best cut in runes[lo:hi], or hi when there is none.
func boundary(runes []rune, lo, hi int) int {
	for _, sep := range []string{"\n\n", "\n", ". "} {
		if i := lastIndex(runes, lo, hi, []rune(sep)); i >= 0 {
			return i + len([]rune(sep))
		}
	}
	for i := hi - 1; i >= lo; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return hi
}

func lastIndex(runes []rune, lo, hi int, sep []rune) int {
	for i := hi - len(sep); i >= lo; i-- {
		match := true
		for j, r := range sep {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Compile-time check
var _ interfaces.DocumentService = (*Service)(nil)

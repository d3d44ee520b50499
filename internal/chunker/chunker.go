// Package chunker splits document text into token-bounded, overlapping chunks.
package chunker

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/Birzhan20/neuro-search-core/internal/models"
)

// Token dictionaries ship with the binary; the default loader would fetch
// them over the network on first use.
var loaderOnce sync.Once

// Splitter segments text into chunks of at most chunkSize tokens, with
// consecutive chunks sharing overlap tokens. Splitting is deterministic and
// has no side effects.
type Splitter struct {
	encoding  *tiktoken.Tiktoken
	chunkSize int
	overlap   int
}

// New creates a Splitter for the named tiktoken encoding.
// overlap must be strictly smaller than chunkSize, otherwise the split loop
// would never advance.
func New(encodingName string, chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}

	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encodingName, err)
	}

	return &Splitter{
		encoding:  encoding,
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

// Split segments text into ordered chunks carrying the given source metadata.
// Empty text yields no chunks. TokenCount is measured by re-encoding the
// decoded chunk text and may differ slightly from the window length due to
// decode/encode round-trip artifacts; callers must treat it as advisory.
func (s *Splitter) Split(text, sourceID string, page int) []models.Chunk {
	if text == "" {
		return nil
	}

	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []models.Chunk
	ordinal := 0
	start := 0

	for {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		decoded := s.encoding.Decode(tokens[start:end])
		chunks = append(chunks, models.Chunk{
			Text:       decoded,
			SourceID:   sourceID,
			Page:       page,
			Ordinal:    ordinal,
			TokenCount: len(s.encoding.Encode(decoded, nil, nil)),
		})
		ordinal++

		if end == len(tokens) {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// ChunkSize returns the configured chunk size in tokens.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured overlap in tokens.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// CountTokens returns the token count of text under the splitter's encoding.
func (s *Splitter) CountTokens(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}

package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

const (
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// IndexingCoverageStats contains statistics about an owner's indexed documents.
type IndexingCoverageStats struct {
	// DocsProcessed is the number of active documents.
	DocsProcessed int `json:"docs_processed"`
	// DocsWith0Chunks is the number of active documents with no stored chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksAttempted is the number of chunks the current chunker produces for those documents.
	ChunksAttempted int `json:"chunks_attempted"`
	// ChunksEmbedded is the number of chunks recorded as stored.
	ChunksEmbedded int `json:"chunks_embedded"`
	// ChunksSkipped is attempted minus embedded, never negative.
	ChunksSkipped int `json:"chunks_skipped"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// GetIndexingCoverageStats computes coverage statistics for the owner's active documents.
// Chunk texts are recomputed from the stored document text with the pipeline's chunker.
func (p *Pipeline) GetIndexingCoverageStats(ctx context.Context, ownerID, embeddingModelName string) (*IndexingCoverageStats, error) {
	docs, err := p.documents.ListActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	stats := &IndexingCoverageStats{
		DocsProcessed:  len(docs),
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   indexVersion(embeddingModelName, p.chunker.ChunkSize, p.chunker.Overlap),
	}

	var tokenCounts []int
	for _, doc := range docs {
		if doc.ChunkCount == 0 {
			stats.DocsWith0Chunks++
		}
		stats.ChunksEmbedded += doc.ChunkCount

		chunks := p.chunker.Chunk(doc.Text)
		stats.ChunksAttempted += len(chunks)
		for _, chunk := range chunks {
			tokenCounts = append(tokenCounts, estimateTokens(chunk))
		}
	}
	stats.ChunksSkipped = max(stats.ChunksAttempted-stats.ChunksEmbedded, 0)
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)

	return stats, nil
}

// estimateTokens estimates tokens from rune count (~4 chars per token), minimum 1.
func estimateTokens(text string) int {
	return max(int(math.Round(float64(utf8.RuneCountInString(text))/TokensPerRune)), 1)
}

// indexVersion hashes everything that changes the stored vectors.
func indexVersion(embeddingModelName string, chunkSize, overlap int) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|overlap=%d", ChunkerVersion, embeddingModelName, chunkSize, overlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}

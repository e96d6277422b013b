package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// chunkRow is one chunk ready to be written.
type chunkRow struct {
	id        string
	index     int
	content   string
	embedding []float32
}

// buildRows validates the parallel slices and assigns time-ordered chunk IDs.
func buildRows(firstIndex int, chunks []string, embeddings [][]float32) ([]chunkRow, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(chunks), len(embeddings))
	}
	rows := make([]chunkRow, len(chunks))
	for i := range chunks {
		rows[i] = chunkRow{
			id:        uuid.Must(uuid.NewV7()).String(),
			index:     firstIndex + i,
			content:   chunks[i],
			embedding: embeddings[i],
		}
	}
	return rows, nil
}

// sortResults orders by similarity descending, then chunk ID ascending.
func sortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}

// cosineSimilarity returns 1 - cosine distance of a and b, or 0 when either is a zero vector.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// encodeVector packs v as little-endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

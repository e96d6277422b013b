package vectorstore

import (
	"errors"
	"math"
	"testing"
)

func TestBuildRows(t *testing.T) {
	rows, err := buildRows(10, []string{"a", "b"}, [][]float32{{1}, {2}})
	if err != nil {
		t.Fatalf("buildRows() error = %v", err)
	}
	if len(rows) != 2 || rows[0].index != 10 || rows[1].index != 11 {
		t.Fatalf("buildRows() = %+v", rows)
	}
	if rows[0].id == "" || rows[0].id == rows[1].id {
		t.Error("buildRows() should assign distinct ids")
	}
	if rows[0].id >= rows[1].id {
		t.Error("buildRows() ids should be time ordered")
	}

	if _, err := buildRows(0, []string{"a", "b"}, [][]float32{{1}}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("buildRows() mismatch error = %v, want ErrLengthMismatch", err)
	}
}

func TestSortResults(t *testing.T) {
	results := []SearchResult{
		{ChunkID: "c", Similarity: 0.5},
		{ChunkID: "b", Similarity: 0.9},
		{ChunkID: "a", Similarity: 0.5},
		{ChunkID: "d", Similarity: 0.7},
	}
	sortResults(results)

	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ChunkID, id)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 0}, b: []float32{5, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1.5, -2.25, float32(math.Pi)}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d = %v, want %v", i, out[i], in[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("decodeVector() should reject truncated input")
	}
}

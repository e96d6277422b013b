package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"gilda/internal/storage"
)

func TestGetIndexingCoverageStats(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	repo := storage.NewDocumentRepo(db)
	pipeline := NewPipeline(repo, nil, nil, Options{ChunkSize: 10})
	ctx := context.Background()

	// Empty owner
	stats, err := pipeline.GetIndexingCoverageStats(ctx, "owner-a", "test-embedding-model")
	if err != nil {
		t.Fatalf("GetIndexingCoverageStats() error = %v", err)
	}
	if stats.DocsProcessed != 0 || stats.ChunksEmbedded != 0 || stats.ChunkTokenStats != (ChunkTokenStats{}) {
		t.Errorf("empty stats = %+v", stats)
	}
	if stats.ChunkerVersion != ChunkerVersion {
		t.Errorf("ChunkerVersion = %s, want %s", stats.ChunkerVersion, ChunkerVersion)
	}
	if len(stats.IndexVersion) != 16 {
		t.Errorf("IndexVersion = %q, want 16 hex chars", stats.IndexVersion)
	}

	docs := []struct {
		filename string
		text     string
		stored   int
	}{
		{filename: "full.pdf", text: threeChunkText, stored: 3},
		{filename: "partial.pdf", text: threeChunkText, stored: 1},
		{filename: "none.pdf", text: "short text", stored: 0},
	}
	for _, d := range docs {
		doc := &storage.Document{OwnerID: "owner-a", Filename: d.filename, Text: d.text}
		if err := repo.Create(ctx, doc); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := repo.UpdateChunkCount(ctx, doc.ID, d.stored); err != nil {
			t.Fatalf("UpdateChunkCount() error = %v", err)
		}
	}
	// Another owner's document is not counted
	if err := repo.Create(ctx, &storage.Document{OwnerID: "owner-b", Filename: "x.pdf", Text: "other"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stats, err = pipeline.GetIndexingCoverageStats(ctx, "owner-a", "test-embedding-model")
	if err != nil {
		t.Fatalf("GetIndexingCoverageStats() error = %v", err)
	}
	if stats.DocsProcessed != 3 {
		t.Errorf("DocsProcessed = %d, want 3", stats.DocsProcessed)
	}
	if stats.DocsWith0Chunks != 1 {
		t.Errorf("DocsWith0Chunks = %d, want 1", stats.DocsWith0Chunks)
	}
	if stats.ChunksEmbedded != 4 {
		t.Errorf("ChunksEmbedded = %d, want 4", stats.ChunksEmbedded)
	}
	if stats.ChunksAttempted != 7 {
		t.Errorf("ChunksAttempted = %d, want 7", stats.ChunksAttempted)
	}
	if stats.ChunksSkipped != 3 {
		t.Errorf("ChunksSkipped = %d, want 3", stats.ChunksSkipped)
	}
	// Every chunk is 10 runes: round(10/4) = 3 tokens
	want := ChunkTokenStats{Min: 3, Max: 3, Mean: 3, P95: 3}
	if stats.ChunkTokenStats != want {
		t.Errorf("ChunkTokenStats = %+v, want %+v", stats.ChunkTokenStats, want)
	}
}

func TestIndexVersion(t *testing.T) {
	a := indexVersion("model-a", 2000, 500)
	if a != indexVersion("model-a", 2000, 500) {
		t.Error("indexVersion() should be deterministic")
	}
	if a == indexVersion("model-b", 2000, 500) {
		t.Error("indexVersion() should change with the embedding model")
	}
	if a == indexVersion("model-a", 1000, 500) {
		t.Error("indexVersion() should change with the chunk size")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 1},
		{text: "ab", want: 1},
		{text: "abcdefgh", want: 2},
		{text: "ééééééééé", want: 2},
	}
	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name        string
		tokenCounts []int
		want        ChunkTokenStats
	}{
		{
			name:        "empty",
			tokenCounts: []int{},
			want:        ChunkTokenStats{},
		},
		{
			name:        "single value",
			tokenCounts: []int{10},
			want:        ChunkTokenStats{Min: 10, Max: 10, Mean: 10.0, P95: 10},
		},
		{
			name:        "unsorted values",
			tokenCounts: []int{30, 5, 20, 10, 15},
			want:        ChunkTokenStats{Min: 5, Max: 30, Mean: 16.0, P95: 30},
		},
		{
			name:        "many values for p95",
			tokenCounts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:        ChunkTokenStats{Min: 1, Max: 20, Mean: 10.5, P95: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeTokenStats(tt.tokenCounts); got != tt.want {
				t.Errorf("computeTokenStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

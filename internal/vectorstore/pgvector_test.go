package vectorstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"gilda/internal/storage"
)

// openTestPostgres connects to TEST_DATABASE_URL and prepares a 3-dimensional chunks table.
func openTestPostgres(t *testing.T) *storage.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := storage.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := NewPgVectorStore(db, 2).EnsureSchema(ctx, 3); err != nil {
		t.Skipf("chunks table not usable with 3 dimensions: %v", err)
	}
	return db
}

// seedOwner creates one document for owner with n chunks near the x axis.
func seedOwner(t *testing.T, db *storage.DB, store *PgVectorStore, owner string, n int) {
	t.Helper()
	ctx := context.Background()

	docs := storage.NewDocumentRepo(db)
	doc := &storage.Document{OwnerID: owner, Filename: "bulk.pdf", Text: "bulk"}
	if err := docs.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() {
		_ = docs.Delete(context.Background(), owner, doc.ID)
	})

	chunks := make([]string, n)
	embeddings := make([][]float32, n)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("%s chunk %d", owner, i)
		embeddings[i] = []float32{1, float32(i%97) / 100, float32(i%13) / 100}
	}
	ref := DocumentRef{ID: doc.ID, OwnerID: owner, Filename: doc.Filename}
	if err := store.SaveChunks(ctx, ref, 0, chunks, embeddings); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}
}

func TestPgVectorStore(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	store := NewPgVectorStore(db, 2)

	owner := "test-" + uuid.NewString()
	docs := storage.NewDocumentRepo(db)
	doc := &storage.Document{OwnerID: owner, Filename: "catalog.pdf", Text: "catalog"}
	if err := docs.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() {
		_ = docs.Delete(ctx, owner, doc.ID)
	}()

	ref := DocumentRef{ID: doc.ID, OwnerID: owner, Filename: doc.Filename}
	err := store.SaveChunks(ctx, ref, 0,
		[]string{"exact", "close", "far", "tie"},
		[][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 0, 1}, {1, 0, 0}},
	)
	if err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}

	results, err := store.Search(ctx, owner, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	if results[0].ChunkID >= results[1].ChunkID || results[2].Content != "close" {
		t.Errorf("unexpected order: %+v", results)
	}

	if err := store.DeleteByDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	results, err = store.Search(ctx, owner, []float32{1, 0, 0}, 3)
	if err != nil || len(results) != 0 {
		t.Errorf("Search() after delete = %v, %v", results, err)
	}
}

func TestPgVectorStore_SmallOwnerAmongLargeOwner(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	store := NewPgVectorStore(db, 500)

	large := "test-large-" + uuid.NewString()
	small := "test-small-" + uuid.NewString()
	seedOwner(t, db, store, large, 5000)
	seedOwner(t, db, store, small, 20)

	results, err := store.Search(ctx, small, []float32{1, 0, 0}, 15)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 15 {
		t.Fatalf("Search() returned %d results, want 15", len(results))
	}
	for i, r := range results {
		if !strings.HasPrefix(r.Content, small) {
			t.Errorf("results[%d] = %q belongs to another owner", i, r.Content)
		}
		if i > 0 && results[i-1].Similarity < r.Similarity {
			t.Errorf("results not ordered by similarity at %d", i)
		}
	}
}

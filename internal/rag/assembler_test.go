package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/mock/gomock"

	"gilda/internal/rag"
	rag_mocks "gilda/internal/rag/mocks"
	"gilda/internal/storage"
	storage_mocks "gilda/internal/storage/mocks"
	"gilda/internal/vectorstore"
	vectorstore_mocks "gilda/internal/vectorstore/mocks"
)

type assemblerFixture struct {
	embedder  *rag_mocks.MockQueryEmbedder
	vectors   *vectorstore_mocks.MockVectorStore
	documents *storage_mocks.MockDocumentStore
}

func newAssemblerFixture(t *testing.T) *assemblerFixture {
	ctrl := gomock.NewController(t)
	return &assemblerFixture{
		embedder:  rag_mocks.NewMockQueryEmbedder(ctrl),
		vectors:   vectorstore_mocks.NewMockVectorStore(ctrl),
		documents: storage_mocks.NewMockDocumentStore(ctrl),
	}
}

func (f *assemblerFixture) assembler(maxChars int) *rag.Assembler {
	return rag.NewAssembler(f.embedder, f.vectors, f.documents, maxChars)
}

func TestAssembleContext_VectorMatches(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()
	query := []float32{0.1, 0.2}

	f.embedder.EXPECT().EmbedText(gomock.Any(), "what is CS 101?").Return(query, nil)
	f.vectors.EXPECT().Search(gomock.Any(), "owner-a", query, 15).Return([]vectorstore.SearchResult{
		{ChunkID: "c1", DocumentID: "d1", SourceFilename: "catalog.pdf", Content: "CS 101 is intro to programming.", Similarity: 0.92},
		{ChunkID: "c2", DocumentID: "d2", SourceFilename: "handbook.pdf", Content: "Dress code is casual.", Similarity: 0.41},
	}, nil)

	got, err := f.assembler(0).AssembleContext(ctx, "owner-a", "what is CS 101?", 15, "")
	if err != nil {
		t.Fatalf("AssembleContext() error = %v", err)
	}

	want := "[Source: catalog.pdf]\nCS 101 is intro to programming.\n\n---\n\n[Source: handbook.pdf]\nDress code is casual."
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if got.Source != rag.SourceVector {
		t.Errorf("Source = %s, want vector", got.Source)
	}
	if len(got.Matches) != 2 || got.Matches[0].ChunkID != "c1" || got.Matches[1].Filename != "handbook.pdf" {
		t.Errorf("Matches = %+v", got.Matches)
	}
	if got.Truncated {
		t.Error("short context should not be truncated")
	}
}

func TestAssembleContext_Fallback(t *testing.T) {
	ctx := context.Background()
	docs := []*storage.Document{
		{ID: "d1", Filename: "handbook.pdf", Text: "Vacation policy: 20 days."},
		{ID: "d2", Filename: "catalog.pdf", Text: "CS 101 covers programming basics. CS 101 has no prerequisites."},
		{ID: "d3", Filename: "blank.pdf", Text: "   "},
	}

	t.Run("search error uses stored documents, most relevant first", func(t *testing.T) {
		f := newAssemblerFixture(t)
		f.embedder.EXPECT().EmbedText(gomock.Any(), "CS 101").Return([]float32{1}, nil)
		f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), 15).Return(nil, vectorstore.ErrUnavailable)
		f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(docs, nil)

		got, err := f.assembler(0).AssembleContext(ctx, "owner-a", "CS 101", 15, "")
		if err != nil {
			t.Fatalf("AssembleContext() error = %v", err)
		}
		want := "=== catalog.pdf ===\n\nCS 101 covers programming basics. CS 101 has no prerequisites.\n\n" +
			"=== handbook.pdf ===\n\nVacation policy: 20 days.\n\n"
		if got.Text != want {
			t.Errorf("Text = %q, want %q", got.Text, want)
		}
		if got.Source != rag.SourceFallback || len(got.Matches) != 0 {
			t.Errorf("Source = %s, Matches = %v", got.Source, got.Matches)
		}
	})

	t.Run("embedding error uses stored documents", func(t *testing.T) {
		f := newAssemblerFixture(t)
		f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return(nil, errors.New("rate limited"))
		f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(docs[:1], nil)

		got, err := f.assembler(0).AssembleContext(ctx, "owner-a", "vacation", 15, "")
		if err != nil {
			t.Fatalf("AssembleContext() error = %v", err)
		}
		if got.Source != rag.SourceFallback || !strings.Contains(got.Text, "Vacation policy") {
			t.Errorf("AssembleContext() = %+v", got)
		}
	})

	t.Run("no matches prefers explicit fallback text", func(t *testing.T) {
		f := newAssemblerFixture(t)
		f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
		f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), 15).Return(nil, nil)

		got, err := f.assembler(0).AssembleContext(ctx, "owner-a", "vacation", 15, "shared snapshot text")
		if err != nil {
			t.Fatalf("AssembleContext() error = %v", err)
		}
		if got.Text != "shared snapshot text" || got.Source != rag.SourceFallback {
			t.Errorf("AssembleContext() = %+v", got)
		}
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := newAssemblerFixture(t)
		f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
		f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), 5).Return([]vectorstore.SearchResult{}, nil)
		f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(nil, nil)

		got, err := f.assembler(0).AssembleContext(ctx, "owner-a", "anything", 5, "")
		if err != nil {
			t.Fatalf("AssembleContext() error = %v", err)
		}
		if got.Source != rag.SourceNone || got.Text != "" {
			t.Errorf("AssembleContext() = %+v", got)
		}
	})

	t.Run("fallback load failure is an error", func(t *testing.T) {
		f := newAssemblerFixture(t)
		f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
		f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), 5).Return(nil, nil)
		f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(nil, errors.New("db down"))

		if _, err := f.assembler(0).AssembleContext(ctx, "owner-a", "anything", 5, ""); err == nil {
			t.Error("AssembleContext() should fail when fallback documents cannot be loaded")
		}
	})
}

func TestAssembleContext_TruncatesLargeContext(t *testing.T) {
	f := newAssemblerFixture(t)

	results := make([]vectorstore.SearchResult, 20)
	for i := range results {
		results[i] = vectorstore.SearchResult{
			ChunkID:        fmt.Sprintf("c%02d", i),
			SourceFilename: "big.pdf",
			Content:        strings.Repeat("x", 20000),
			Similarity:     0.5,
		}
	}
	f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), 20).Return(results, nil)

	got, err := f.assembler(rag.DefaultMaxContextChars).AssembleContext(context.Background(), "owner-a", "q", 20, "")
	if err != nil {
		t.Fatalf("AssembleContext() error = %v", err)
	}
	if !got.Truncated {
		t.Error("Truncated = false, want true")
	}
	if n := utf8.RuneCountInString(got.Text); n > rag.DefaultMaxContextChars+utf8.RuneCountInString(rag.TruncationNotice) {
		t.Errorf("context length %d exceeds cap", n)
	}
	if !strings.HasSuffix(got.Text, rag.TruncationNotice) {
		t.Error("truncated context should end with the notice")
	}
}

func TestTruncateContext(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "short text unchanged", text: "hello", max: 10, want: "hello"},
		{name: "exact length unchanged", text: "hello", max: 5, want: "hello"},
		{name: "cut with notice", text: "hello world", max: 5, want: "hello" + rag.TruncationNotice},
		{name: "counts characters not bytes", text: "héllo wörld", max: 5, want: "héllo" + rag.TruncationNotice},
		{name: "empty", text: "", max: 5, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rag.TruncateContext(tt.text, tt.max)
			if got != tt.want {
				t.Errorf("TruncateContext() = %q, want %q", got, tt.want)
			}
		})
	}

	short := "already short"
	if once := rag.TruncateContext(short, 100); rag.TruncateContext(once, 100) != short {
		t.Error("TruncateContext() should be a no-op on short text")
	}
}

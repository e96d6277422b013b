package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"gilda/internal/llm"
	"gilda/internal/rag"
	rag_mocks "gilda/internal/rag/mocks"
	storage_mocks "gilda/internal/storage/mocks"
	"gilda/internal/vectorstore"
	vectorstore_mocks "gilda/internal/vectorstore/mocks"
)

type engineFixture struct {
	embedder  *rag_mocks.MockQueryEmbedder
	vectors   *vectorstore_mocks.MockVectorStore
	documents *storage_mocks.MockDocumentStore
	chat      *rag_mocks.MockChatClient
	engine    rag.Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	ctrl := gomock.NewController(t)
	f := &engineFixture{
		embedder:  rag_mocks.NewMockQueryEmbedder(ctrl),
		vectors:   vectorstore_mocks.NewMockVectorStore(ctrl),
		documents: storage_mocks.NewMockDocumentStore(ctrl),
		chat:      rag_mocks.NewMockChatClient(ctrl),
	}
	f.engine = rag.NewEngine(
		rag.NewAssembler(f.embedder, f.vectors, f.documents, 0),
		rag.NewGenerator(f.chat, 1000),
		rag.EngineOptions{DetailMaxTokens: 800},
	)
	return f
}

var catalogMatch = vectorstore.SearchResult{
	ChunkID:        "c1",
	DocumentID:     "d1",
	SourceFilename: "catalog.pdf",
	Content:        "CS 101 Introduction to Programming, 3 credits.",
	Similarity:     0.9,
}

func TestEngine_Ask(t *testing.T) {
	f := newEngineFixture(t)
	history := []llm.Message{{Role: llm.RoleUser, Content: "Hi"}, {Role: llm.RoleAssistant, Content: "Hello!"}}

	f.embedder.EXPECT().EmbedText(gomock.Any(), "Which intro courses exist?").Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), "owner-a", []float32{1}, rag.DefaultRetrievalLimit).Return([]vectorstore.SearchResult{catalogMatch}, nil)
	f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
			if len(messages) != 4 {
				t.Fatalf("sent %d messages, want 4", len(messages))
			}
			if messages[0].Role != llm.RoleSystem || !strings.Contains(messages[0].Content, "[Source: catalog.pdf]") {
				t.Errorf("system message = %q", messages[0].Content)
			}
			if !strings.Contains(messages[0].Content, "You are Gilda") {
				t.Error("system message should carry the persona")
			}
			if messages[3].Content != "Which intro courses exist?" {
				t.Errorf("last message = %q", messages[3].Content)
			}
			return "Try [CS 101](lookup:CS%20101).", nil
		})

	resp, err := f.engine.Ask(context.Background(), rag.AskRequest{
		OwnerID: "owner-a",
		Message: "  Which intro courses exist?  ",
		History: history,
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "Try [CS 101](lookup:CS%20101)." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.ContextSource != rag.SourceVector || len(resp.Sources) != 1 || resp.Sources[0].Filename != "catalog.pdf" {
		t.Errorf("Sources = %+v, ContextSource = %s", resp.Sources, resp.ContextSource)
	}
	if len(resp.DeepLinks) != 1 || resp.DeepLinks[0] != (rag.DeepLink{Label: "CS 101", Query: "CS 101"}) {
		t.Errorf("DeepLinks = %+v", resp.DeepLinks)
	}
}

func TestEngine_Ask_NoDocuments(t *testing.T) {
	f := newEngineFixture(t)

	f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), gomock.Any()).Return(nil, nil)
	f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(nil, nil)

	resp, err := f.engine.Ask(context.Background(), rag.AskRequest{OwnerID: "owner-a", Message: "hello"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.ContextSource != rag.SourceNone || resp.Answer != rag.DefaultPrompts().NoDocuments {
		t.Errorf("Ask() = %+v", resp)
	}
	if resp.Sources == nil {
		t.Error("Sources should be empty, not nil")
	}
}

func TestEngine_Ask_EmptyQuestion(t *testing.T) {
	f := newEngineFixture(t)
	if _, err := f.engine.Ask(context.Background(), rag.AskRequest{OwnerID: "o", Message: "   "}); !errors.Is(err, rag.ErrEmptyQuestion) {
		t.Errorf("Ask() error = %v, want ErrEmptyQuestion", err)
	}
}

func TestEngine_Ask_GenerationFailure(t *testing.T) {
	f := newEngineFixture(t)

	f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{catalogMatch}, nil)
	f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", &llm.GenerationServiceError{StatusCode: 503, Message: "overloaded"})

	resp, err := f.engine.Ask(context.Background(), rag.AskRequest{OwnerID: "owner-a", Message: "q"})
	var genErr *llm.GenerationServiceError
	if !errors.As(err, &genErr) {
		t.Fatalf("Ask() error = %v, want GenerationServiceError", err)
	}
	if len(resp.Sources) != 1 {
		t.Error("sources should be reported even when generation fails")
	}
}

func TestEngine_StreamAsk(t *testing.T) {
	f := newEngineFixture(t)

	f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]vectorstore.SearchResult{catalogMatch}, nil)
	f.chat.EXPECT().StreamChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ []llm.Message, _ llm.ChatParams, callback func(string) error) error {
			if err := callback("See [CS 101]"); err != nil {
				return err
			}
			return callback("(lookup:CS%20101)")
		})

	var streamed strings.Builder
	resp, err := f.engine.StreamAsk(context.Background(), rag.AskRequest{OwnerID: "owner-a", Message: "q"}, func(s string) error {
		streamed.WriteString(s)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamAsk() error = %v", err)
	}
	if streamed.String() != resp.Answer || resp.Answer != "See [CS 101](lookup:CS%20101)" {
		t.Errorf("streamed %q, answer %q", streamed.String(), resp.Answer)
	}
	if len(resp.DeepLinks) != 1 {
		t.Errorf("DeepLinks = %+v", resp.DeepLinks)
	}
}

func TestEngine_Lookup(t *testing.T) {
	f := newEngineFixture(t)

	// Exactly one retrieval and one generation
	f.embedder.EXPECT().EmbedText(gomock.Any(), "Detailed information about CS 101").Return([]float32{1}, nil).Times(1)
	f.vectors.EXPECT().Search(gomock.Any(), "owner-a", gomock.Any(), rag.DefaultDetailRetrievalLimit).Return([]vectorstore.SearchResult{catalogMatch}, nil).Times(1)
	f.chat.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), llm.ChatParams{MaxTokens: 800}).DoAndReturn(
		func(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
			if len(messages) != 2 {
				t.Fatalf("sent %d messages, want 2", len(messages))
			}
			if !strings.Contains(messages[0].Content, `"CS 101"`) {
				t.Errorf("system message = %q", messages[0].Content)
			}
			if !strings.HasPrefix(messages[1].Content, "Snippets from the document:\n[Source: catalog.pdf]") {
				t.Errorf("user message = %q", messages[1].Content)
			}
			return "CS 101 is a 3 credit introduction.", nil
		}).Times(1)

	resp, err := f.engine.Lookup(context.Background(), rag.LookupRequest{OwnerID: "owner-a", Query: "CS 101"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if resp.Details != "CS 101 is a 3 credit introduction." || len(resp.Sources) != 1 {
		t.Errorf("Lookup() = %+v", resp)
	}
}

func TestEngine_Lookup_NotFound(t *testing.T) {
	f := newEngineFixture(t)

	f.embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return([]float32{1}, nil)
	f.vectors.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(nil, nil)

	resp, err := f.engine.Lookup(context.Background(), rag.LookupRequest{OwnerID: "owner-a", Query: "CS 999"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if resp.Details != rag.DefaultPrompts().NotFound {
		t.Errorf("Details = %q", resp.Details)
	}
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gilda/internal/indexer"
	"gilda/internal/service"
	svcmocks "gilda/internal/service/mocks"
	"gilda/internal/storage"
	storagemocks "gilda/internal/storage/mocks"
	"gilda/internal/vectorstore"
	vectormocks "gilda/internal/vectorstore/mocks"

	"go.uber.org/mock/gomock"
)

type documentFixture struct {
	documents *storagemocks.MockDocumentStore
	vectors   *vectormocks.MockVectorStore
	indexer   *svcmocks.MockIndexer
	extractor *svcmocks.MockTextExtractor
	svc       service.DocumentService
}

func newDocumentFixture(t *testing.T) *documentFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &documentFixture{
		documents: storagemocks.NewMockDocumentStore(ctrl),
		vectors:   vectormocks.NewMockVectorStore(ctrl),
		indexer:   svcmocks.NewMockIndexer(ctrl),
		extractor: svcmocks.NewMockTextExtractor(ctrl),
	}
	f.svc = service.NewDocumentService(f.documents, f.vectors, f.indexer, f.extractor, "text-embedding-3-small")
	return f
}

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentFixture(t)

	f.extractor.EXPECT().ExtractBytes(gomock.Any(), "catalog.pdf", []byte("%PDF-a")).Return("CS 101", nil)
	f.extractor.EXPECT().ExtractBytes(gomock.Any(), "scan.PDF", []byte("%PDF-bb")).Return("", nil)
	f.indexer.EXPECT().IngestAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, uploads []indexer.Upload, emit indexer.EmitFunc) error {
			want := []indexer.Upload{
				{OwnerID: "owner-a", Filename: "catalog.pdf", Text: "CS 101", SizeBytes: 6},
				{OwnerID: "owner-a", Filename: "scan.PDF", Text: "", SizeBytes: 7},
			}
			if len(uploads) != len(want) {
				t.Fatalf("uploads = %+v", uploads)
			}
			for i := range want {
				if uploads[i] != want[i] {
					t.Errorf("uploads[%d] = %+v, want %+v", i, uploads[i], want[i])
				}
			}
			return emit(indexer.ProgressEvent{Status: indexer.StatusSuccess})
		})

	var events []indexer.ProgressEvent
	err := f.svc.Upload(testContext(), "owner-a", []service.UploadFile{
		{Filename: "catalog.pdf", Data: []byte("%PDF-a")},
		{Filename: "scan.PDF", Data: []byte("%PDF-bb")},
	}, func(ev indexer.ProgressEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(events) != 1 || events[0].Status != indexer.StatusSuccess {
		t.Errorf("events = %+v", events)
	}
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		files   []service.UploadFile
		check   func(error) bool
	}{
		{
			name:    "no owner",
			files:   []service.UploadFile{{Filename: "a.pdf"}},
			check:   func(err error) bool { return errors.Is(err, service.ErrUnauthorized) },
			ownerID: "",
		},
		{
			name:    "no files",
			ownerID: "owner-a",
			check: func(err error) bool {
				var v *service.ValidationError
				return errors.As(err, &v) && v.Field == "files"
			},
		},
		{
			name:    "not a pdf",
			ownerID: "owner-a",
			files:   []service.UploadFile{{Filename: "a.pdf"}, {Filename: "notes.docx"}},
			check: func(err error) bool {
				var v *service.ValidationError
				return errors.As(err, &v) && v.Field == "files"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocumentFixture(t)
			err := f.svc.Upload(testContext(), tt.ownerID, tt.files, func(indexer.ProgressEvent) error { return nil })
			if !tt.check(err) {
				t.Errorf("Upload() error = %v", err)
			}
		})
	}
}

func TestDocumentService_Upload_IndexingError(t *testing.T) {
	f := newDocumentFixture(t)
	f.extractor.EXPECT().ExtractBytes(gomock.Any(), gomock.Any(), gomock.Any()).Return("text", nil)
	f.indexer.EXPECT().IngestAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(indexer.ErrEmptyDocument)

	err := f.svc.Upload(testContext(), "owner-a", []service.UploadFile{{Filename: "a.pdf"}}, func(indexer.ProgressEvent) error { return nil })
	if !errors.Is(err, indexer.ErrEmptyDocument) {
		t.Errorf("Upload() error = %v, want ErrEmptyDocument", err)
	}
}

func TestDocumentService_List(t *testing.T) {
	f := newDocumentFixture(t)
	stats := &indexer.IndexingCoverageStats{DocsProcessed: 1}
	f.documents.EXPECT().ListByOwner(gomock.Any(), "owner-a").Return(nil, nil)
	f.indexer.EXPECT().GetIndexingCoverageStats(gomock.Any(), "owner-a", "text-embedding-3-small").Return(stats, nil)

	list, err := f.svc.List(testContext(), "owner-a")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Documents == nil || len(list.Documents) != 0 {
		t.Errorf("Documents = %#v, want empty non-nil slice", list.Documents)
	}
	if list.Stats != stats {
		t.Errorf("Stats = %+v", list.Stats)
	}
}

func TestDocumentService_Delete(t *testing.T) {
	t.Run("removes chunks then the row", func(t *testing.T) {
		f := newDocumentFixture(t)
		gomock.InOrder(
			f.documents.EXPECT().GetByID(gomock.Any(), "owner-a", "doc-1").Return(&storage.Document{ID: "doc-1"}, nil),
			f.vectors.EXPECT().DeleteByDocument(gomock.Any(), "doc-1").Return(nil),
			f.documents.EXPECT().Delete(gomock.Any(), "owner-a", "doc-1").Return(nil),
		)
		if err := f.svc.Delete(testContext(), "owner-a", "doc-1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("someone else's document", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.EXPECT().GetByID(gomock.Any(), "owner-b", "doc-1").Return(nil, storage.ErrNotFound)
		if err := f.svc.Delete(testContext(), "owner-b", "doc-1"); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("vector store failure keeps the row", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.EXPECT().GetByID(gomock.Any(), "owner-a", "doc-1").Return(&storage.Document{ID: "doc-1"}, nil)
		f.vectors.EXPECT().DeleteByDocument(gomock.Any(), "doc-1").Return(fmt.Errorf("%w: connection refused", vectorstore.ErrUnavailable))
		if err := f.svc.Delete(testContext(), "owner-a", "doc-1"); !errors.Is(err, service.ErrUnavailable) {
			t.Errorf("Delete() error = %v, want ErrUnavailable", err)
		}
	})
}

func TestDocumentService_Reindex(t *testing.T) {
	f := newDocumentFixture(t)

	f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return([]*storage.Document{
		{ID: "doc-1", OwnerID: "owner-a", Filename: "catalog.pdf", Text: "CS 101", SizeBytes: 120, Active: true},
		{ID: "doc-2", OwnerID: "owner-a", Filename: "policy.pdf", Text: "Refunds", SizeBytes: 80, Active: true},
	}, nil)
	f.indexer.EXPECT().IngestAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, uploads []indexer.Upload, _ indexer.EmitFunc) error {
			want := []indexer.Upload{
				{OwnerID: "owner-a", Filename: "catalog.pdf", Text: "CS 101", SizeBytes: 120},
				{OwnerID: "owner-a", Filename: "policy.pdf", Text: "Refunds", SizeBytes: 80},
			}
			if len(uploads) != len(want) {
				t.Fatalf("uploads = %+v", uploads)
			}
			for i := range want {
				if uploads[i] != want[i] {
					t.Errorf("uploads[%d] = %+v, want %+v", i, uploads[i], want[i])
				}
			}
			return nil
		})

	if err := f.svc.Reindex(testContext(), "owner-a", func(indexer.ProgressEvent) error { return nil }); err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
}

func TestDocumentService_Reindex_Errors(t *testing.T) {
	t.Run("missing owner", func(t *testing.T) {
		f := newDocumentFixture(t)
		err := f.svc.Reindex(testContext(), "", nil)
		if !errors.Is(err, service.ErrUnauthorized) {
			t.Errorf("Reindex() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("no documents", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.EXPECT().ListActive(gomock.Any(), "owner-a").Return(nil, nil)

		err := f.svc.Reindex(testContext(), "owner-a", nil)
		var valErr *service.ValidationError
		if !errors.As(err, &valErr) || valErr.Field != "documents" {
			t.Errorf("Reindex() error = %v, want documents validation error", err)
		}
	})
}

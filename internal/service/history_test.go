package service_test

import (
	"errors"
	"testing"

	"gilda/internal/service"
	"gilda/internal/storage"
	storagemocks "gilda/internal/storage/mocks"

	"go.uber.org/mock/gomock"
)

func TestHistoryService_ListRecent(t *testing.T) {
	tests := []struct {
		name      string
		ownerID   string
		limit     int
		wantLimit int
		wantErr   bool
	}{
		{name: "default limit", ownerID: "owner-a", limit: 0, wantLimit: service.DefaultHistoryLimit},
		{name: "explicit limit", ownerID: "owner-a", limit: 5, wantLimit: 5},
		{name: "capped limit", ownerID: "owner-a", limit: 10000, wantLimit: service.MaxHistoryLimit},
		{name: "negative limit", ownerID: "owner-a", limit: -1, wantErr: true},
		{name: "missing owner", limit: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := storagemocks.NewMockHistoryStore(ctrl)
			if !tt.wantErr {
				store.EXPECT().ListRecent(gomock.Any(), tt.ownerID, tt.wantLimit).Return(nil, nil)
			}

			turns, err := service.NewHistoryService(store).ListRecent(testContext(), tt.ownerID, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ListRecent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && turns == nil {
				t.Error("ListRecent() should return an empty slice, not nil")
			}
		})
	}
}

func TestHistoryService_ListRecent_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockHistoryStore(ctrl)
	store.EXPECT().ListRecent(gomock.Any(), "owner-a", 5).Return([]storage.ChatTurn(nil), errors.New("database is closed"))

	if _, err := service.NewHistoryService(store).ListRecent(testContext(), "owner-a", 5); err == nil {
		t.Error("ListRecent() should fail")
	}
}

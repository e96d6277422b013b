package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gilda/internal/rag"
	"gilda/internal/service"
	"gilda/internal/service/mocks"

	"go.uber.org/mock/gomock"
)

func TestLookupHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		ownerID    string
		body       any
		mockSetup  func(*mocks.MockChatService)
		wantStatus int
		wantDetail string
	}{
		{
			name:    "successful lookup",
			method:  http.MethodPost,
			ownerID: "owner-a",
			body:    LookupRequest{Query: "CS 101"},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().Lookup(gomock.Any(), service.LookupRequest{OwnerID: "owner-a", Query: "CS 101"}).
					Return(service.LookupResponse{Details: "Intro to Programming", Sources: []rag.Match{{ChunkID: "c1"}}}, nil)
			},
			wantStatus: http.StatusOK,
			wantDetail: "Intro to Programming",
		},
		{
			name:   "share lookup",
			method: http.MethodPost,
			body:   LookupRequest{Query: "CS 101", ShareID: "s1"},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().Lookup(gomock.Any(), service.LookupRequest{ShareID: "s1", Query: "CS 101"}).
					Return(service.LookupResponse{Details: "Information not found."}, nil)
			},
			wantStatus: http.StatusOK,
			wantDetail: "Information not found.",
		},
		{
			name:       "method not allowed",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid body",
			method:     http.MethodPost,
			body:       "{",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "empty query",
			method:  http.MethodPost,
			ownerID: "owner-a",
			body:    LookupRequest{},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().Lookup(gomock.Any(), gomock.Any()).
					Return(service.LookupResponse{}, &service.ValidationError{Field: "query", Message: "cannot be empty"})
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := mocks.NewMockChatService(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(m)
			}

			w := httptest.NewRecorder()
			NewLookupHandler(m).ServeHTTP(w, newRequest(t, tt.method, "/api/lookup", tt.ownerID, tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp LookupResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Details != tt.wantDetail || resp.Sources == nil {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

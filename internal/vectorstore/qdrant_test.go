package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestParseQdrantURL(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
		wantTLS  bool
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://localhost:9000",
			wantHost: "localhost",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:     "https enables TLS",
			urlStr:   "https://qdrant.example.com:6333",
			wantHost: "qdrant.example.com",
			wantPort: 6334,
			wantTLS:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, useTLS, err := parseQdrantURL(tt.urlStr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseQdrantURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %d, want %d", port, tt.wantPort)
			}
			if useTLS != tt.wantTLS {
				t.Errorf("useTLS = %v, want %v", useTLS, tt.wantTLS)
			}
		})
	}
}

func TestChunkPayload_RoundTrip(t *testing.T) {
	doc := DocumentRef{ID: "doc-1", OwnerID: "owner-a", Filename: "catalog.pdf"}
	row := chunkRow{id: "0191e7c4-0000-7000-8000-000000000001", index: 7, content: "CS 101 intro"}

	payload, err := chunkPayload(doc, row)
	if err != nil {
		t.Fatalf("chunkPayload() error = %v", err)
	}

	point := &qdrant.ScoredPoint{
		Id:      qdrant.NewID(row.id),
		Score:   0.75,
		Payload: payload,
	}
	got := resultFromPoint(point)

	if got.ChunkID != row.id {
		t.Errorf("ChunkID = %q, want %q", got.ChunkID, row.id)
	}
	if got.DocumentID != "doc-1" || got.SourceFilename != "catalog.pdf" || got.Content != "CS 101 intro" {
		t.Errorf("resultFromPoint() = %+v", got)
	}
	if got.Similarity != 0.75 {
		t.Errorf("Similarity = %v, want 0.75", got.Similarity)
	}

	meta := convertPayloadToMap(payload)
	if meta[payloadOwnerID] != "owner-a" {
		t.Errorf("owner payload = %v", meta[payloadOwnerID])
	}
	if meta[payloadChunkIndex] != int64(7) {
		t.Errorf("chunk_index payload = %v", meta[payloadChunkIndex])
	}
}

func TestChunkPayload_InvalidUTF8(t *testing.T) {
	doc := DocumentRef{ID: "doc-1", OwnerID: "owner-a", Filename: "bad.pdf"}
	if _, err := chunkPayload(doc, chunkRow{content: "bad \xff bytes"}); err == nil {
		t.Error("chunkPayload() should reject invalid UTF-8")
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name  string
		value *qdrant.Value
		want  any
	}{
		{name: "string", value: qdrant.NewValueString("x"), want: "x"},
		{name: "int", value: qdrant.NewValueInt(3), want: int64(3)},
		{name: "double", value: qdrant.NewValueDouble(1.5), want: 1.5},
		{name: "bool", value: qdrant.NewValueBool(true), want: true},
		{name: "null", value: qdrant.NewValueNull(), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertValue(tt.value); got != tt.want {
				t.Errorf("convertValue() = %v, want %v", got, tt.want)
			}
		})
	}

	list := convertValue(qdrant.NewValueList(&qdrant.ListValue{
		Values: []*qdrant.Value{qdrant.NewValueString("a"), qdrant.NewValueInt(1)},
	}))
	items, ok := list.([]any)
	if !ok || len(items) != 2 || items[0] != "a" || items[1] != int64(1) {
		t.Errorf("convertValue(list) = %v", list)
	}
}

package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"gilda/internal/contextutil"
)

// Payload keys stored with every point.
const (
	payloadOwnerID    = "owner_id"
	payloadDocumentID = "document_id"
	payloadFilename   = "filename"
	payloadContent    = "content"
	payloadChunkIndex = "chunk_index"
)

// QdrantStore implements VectorStore using a Qdrant collection.
// Superseded documents are removed through DeleteByDocument, so every point
// in the collection belongs to an active document.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	batchSize  int
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string, batchSize int) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantURL(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   host,
		Port:                   port,
		UseTLS:                 useTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 25
	}
	return &QdrantStore{
		client:     client,
		collection: collection,
		batchSize:  batchSize,
	}, nil
}

// parseQdrantURL derives the gRPC host and port from the HTTP URL.
func parseQdrantURL(urlStr string) (string, int, bool, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		// gRPC port is typically HTTP port + 1
		port = httpPort + 1
	}

	return host, port, parsedURL.Scheme == "https", nil
}

// Close releases the gRPC connections.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// SaveChunks upserts one point per chunk, batchSize points per request.
func (s *QdrantStore) SaveChunks(ctx context.Context, doc DocumentRef, firstIndex int, chunks []string, embeddings [][]float32) error {
	logger := contextutil.LoggerFromContext(ctx)

	rows, err := buildRows(firstIndex, chunks, embeddings)
	if err != nil {
		return err
	}

	for start := 0; start < len(rows); start += s.batchSize {
		batch := rows[start:min(start+s.batchSize, len(rows))]
		points := make([]*qdrant.PointStruct, 0, len(batch))
		for _, row := range batch {
			payload, err := chunkPayload(doc, row)
			if err != nil {
				return fmt.Errorf("invalid payload for chunk %d: %w", row.index, err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(row.id),
				Vectors: qdrant.NewVectors(row.embedding...),
				Payload: payload,
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.DebugContext(ctx, "upserted points", "collection", s.collection, "document_id", doc.ID, "count", len(rows))
	return nil
}

func chunkPayload(doc DocumentRef, row chunkRow) (map[string]*qdrant.Value, error) {
	return qdrant.TryValueMap(map[string]any{
		payloadOwnerID:    doc.OwnerID,
		payloadDocumentID: doc.ID,
		payloadFilename:   doc.Filename,
		payloadContent:    row.content,
		payloadChunkIndex: int64(row.index),
	})
}

// Search performs a cosine similarity search restricted to the owner's points.
func (s *QdrantStore) Search(ctx context.Context, ownerID string, query []float32, limit int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	n := uint64(limit)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &n,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadOwnerID, ownerID)},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		results = append(results, resultFromPoint(point))
	}
	sortResults(results)

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "limit", limit, "results", len(results))
	return results, nil
}

// resultFromPoint maps a scored point and its payload to a SearchResult.
func resultFromPoint(point *qdrant.ScoredPoint) SearchResult {
	r := SearchResult{Similarity: float64(point.GetScore())}
	if point.GetId() != nil {
		r.ChunkID = point.GetId().GetUuid()
	}
	meta := convertPayloadToMap(point.GetPayload())
	r.DocumentID, _ = meta[payloadDocumentID].(string)
	r.SourceFilename, _ = meta[payloadFilename].(string)
	r.Content, _ = meta[payloadContent].(string)
	return r
}

// DeleteByDocument removes every point whose payload names the document.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadDocumentID, documentID)},
		}),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "document_id", documentID, "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// Ping runs a Qdrant health check.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// EnsureCollection ensures the collection exists with the specified vector size and
// keyword indexes on the owner and document payload fields.
// If the collection exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		for _, field := range []string{payloadOwnerID, payloadDocumentID} {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: s.collection,
				Wait:           qdrant.PtrOf(true),
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				return fmt.Errorf("failed to create payload index %s: %w", field, err)
			}
		}
		return nil
	}

	// Collection exists, validate vector size
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil || params.GetSize() == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(params.GetSize()) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.GetSize())
	}
	if params.GetDistance() != qdrant.Distance_Cosine {
		return fmt.Errorf("collection distance must be cosine, got %s", params.GetDistance())
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}

package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultVectorDimension = 1536

	payloadText    = "text"
	payloadChunkID = "chunk_id"
)

// pointNamespace scopes deterministic point IDs derived from chunk IDs.
var pointNamespace = uuid.MustParse("6f1c2b8e-4d3a-5e7f-9a0b-1c2d3e4f5a6b")

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository keeps one Qdrant collection per video.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	healthClient    pb.QdrantClient
	vectorDimension int
}

// NewQdrantRepository creates a new QdrantRepository
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		healthClient:    pb.NewQdrantClient(conn),
		vectorDimension: vectorDimension,
	}, nil
}

// Ping runs the Qdrant health check.
func (r *QdrantRepository) Ping(ctx context.Context) error {
	if _, err := r.healthClient.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

func isNotFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	// Older servers report missing collections as a generic error.
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "doesn't exist")
}

func (r *QdrantRepository) exists(ctx context.Context, collectionID string) (bool, error) {
	resp, err := r.collectClient.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: collectionID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return resp.GetResult().GetExists(), nil
}

func (r *QdrantRepository) create(ctx context.Context, collectionID string) error {
	_, err := r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: collectionID,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", ErrCollectionExists, collectionID)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// CreateCollection creates an empty collection sized for the configured embedding dimension.
func (r *QdrantRepository) CreateCollection(ctx context.Context, collectionID string) error {
	ok, err := r.exists(ctx, collectionID)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, collectionID)
	}
	return r.create(ctx, collectionID)
}

// GetOrCreateCollection ensures the collection exists and has the expected vector size.
func (r *QdrantRepository) GetOrCreateCollection(ctx context.Context, collectionID string) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: collectionID,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", collectionID, size, r.vectorDimension)
		}
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to get collection: %w", err)
	}
	return r.create(ctx, collectionID)
}

// DeleteCollection drops the collection; a missing collection is tolerated.
func (r *QdrantRepository) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := r.collectClient.Delete(ctx, &pb.DeleteCollection{
		CollectionName: collectionID,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Clear deletes every point in the collection and waits for the write to apply.
func (r *QdrantRepository) Clear(ctx context.Context, collectionID string) error {
	if err := r.GetOrCreateCollection(ctx, collectionID); err != nil {
		return err
	}
	wait := true
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: collectionID,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

// PointID maps a chunk ID to a stable Qdrant UUID within a collection.
func PointID(collectionID, chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(collectionID+":"+chunkID)).String()
}

// Add upserts all records in a single request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - collectionID: target collection.
//   - records: records with precomputed embeddings.
// Returns:
//   - error: non-nil if the collection is missing or the upsert fails.
func (r *QdrantRepository) Add(ctx context.Context, collectionID string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != r.vectorDimension {
			return fmt.Errorf("record %s has %d dimensions, expected %d", rec.ID, len(rec.Embedding), r.vectorDimension)
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(collectionID, rec.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: rec.Embedding},
				},
			},
			Payload: buildPayload(rec),
		}
	}

	wait := true
	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collectionID,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
		}
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func buildPayload(rec VectorRecord) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(rec.Metadata)+2)
	for k, v := range rec.Metadata {
		payload[k] = stringValue(v)
	}
	payload[payloadText] = stringValue(rec.Text)
	payload[payloadChunkID] = stringValue(rec.ID)
	return payload
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// Query performs a cosine similarity search.
func (r *QdrantRepository) Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]VectorMatch, error) {
	if k <= 0 {
		return []VectorMatch{}, nil
	}

	resp, err := r.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: collectionID,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
		}
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]VectorMatch, len(resp.GetResult()))
	for i, scored := range resp.GetResult() {
		matches[i] = parseMatch(scored)
	}
	return matches, nil
}

func parseMatch(scored *pb.ScoredPoint) VectorMatch {
	m := VectorMatch{
		ID:       scored.GetId().GetUuid(),
		Score:    scored.GetScore(),
		Metadata: make(map[string]string, len(scored.GetPayload())),
	}
	for k, v := range scored.GetPayload() {
		switch k {
		case payloadText:
			m.Text = v.GetStringValue()
		case payloadChunkID:
			m.ID = v.GetStringValue()
		default:
			m.Metadata[k] = v.GetStringValue()
		}
	}
	return m
}

// Count returns the exact number of points in the collection.
func (r *QdrantRepository) Count(ctx context.Context, collectionID string) (int, error) {
	exact := true
	resp, err := r.pointsClient.Count(ctx, &pb.CountPoints{
		CollectionName: collectionID,
		Exact:          &exact,
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
		}
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	for _, params := range vectors.GetParamsMap().GetMap() {
		if size := params.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

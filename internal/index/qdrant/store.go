// Package qdrant is a VectorIndex backed by a remote Qdrant collection over
// gRPC. Chunk ids are mapped to deterministic UUIDv5 point ids and kept in
// the payload.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/index"
)

const (
	payloadChunkID   = "chunk_id"
	payloadDocument  = "document"
	payloadTitle     = "title"
	payloadArticleID = "article_id"

	// Extra candidates fetched so equal scores at the cut-off can be
	// re-ranked by id.
	tieSlack = 16

	// Qdrant needs a vector size up front. A collection reset before any
	// upsert is created with this size and recreated by the first upsert.
	placeholderDimension = 1
)

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	mu sync.RWMutex
	// remote: the collection exists on the server with vectors of remoteDim.
	// dim stays 0 while the collection is empty after a reset or at open.
	remote    bool
	remoteDim int
	exists    bool
	dim       int
}

var _ index.VectorIndex = (*Store)(nil)

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", entity.ErrInvalidArgument)
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	s := &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
	}

	if err := s.load(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (s *Store) load(ctx context.Context) error {
	resp, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get collection %q: %w", s.collection, err)
	}

	s.remote = true
	s.exists = true
	s.remoteDim = int(resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if resp.GetResult().GetPointsCount() > 0 {
		s.dim = s.remoteDim
	}
	return nil
}

func (s *Store) dropCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("drop collection %q: %w", s.collection, err)
	}
	s.remote = false
	return nil
}

func (s *Store) createCollection(ctx context.Context, dim int) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	s.remote = true
	s.remoteDim = dim
	return nil
}

func (s *Store) Upsert(ctx context.Context, entries []entity.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := index.ValidateUpsert(entries, s.dim)
	if err != nil {
		return err
	}

	if s.remote && s.remoteDim != dim {
		// Only an empty collection can disagree with the batch.
		if err := s.dropCollection(ctx); err != nil {
			return err
		}
	}
	if !s.remote {
		if err := s.createCollection(ctx, dim); err != nil {
			return err
		}
	}

	deduped := index.Dedupe(entries)
	points := make([]*pb.PointStruct, len(deduped))
	for i, e := range deduped {
		points[i] = toPoint(e)
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	s.exists = true
	s.dim = dim
	return nil
}

func (s *Store) Query(ctx context.Context, vector entity.Embedding, k int) (entity.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := index.ValidateQuery(vector, k, s.dim); err != nil {
		return nil, err
	}
	if !s.exists {
		return nil, fmt.Errorf("%w: collection %q", entity.ErrNotFound, s.collection)
	}
	if !s.remote || s.dim == 0 {
		return entity.RetrievalResult{}, nil
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k + tieSlack),
		WithPayload:    pb.NewWithPayload(true),
		WithVectors:    pb.NewWithVectors(true),
	})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: collection %q", entity.ErrNotFound, s.collection)
	}
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	scored := make(entity.RetrievalResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		scored = append(scored, entity.ScoredEntry{
			Entry:      fromPoint(pt),
			Similarity: float64(pt.GetScore()),
		})
	}

	return index.Rank(scored, k), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remote {
		return nil
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: []*pb.PointId{PointID(id)}},
		}},
	})
	if err != nil {
		return fmt.Errorf("delete point %q: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, articleID string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remote {
		return nil
	}

	filter := &pb.Filter{Must: []*pb.Condition{pb.NewMatch(payloadArticleID, articleID)}}
	if len(keep) > 0 {
		filter.MustNot = []*pb.Condition{pb.NewMatchKeywords(payloadChunkID, keep...)}
	}

	wait := true
	if _, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         pb.NewPointsSelectorFilter(filter),
	}); err != nil {
		return fmt.Errorf("delete points of article %q: %w", articleID, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.remote {
		return 0, nil
	}

	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Reset drops the remote collection and recreates it empty, so the
// collection survives a restart. The next upsert establishes the dimension.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.remoteDim
	if size == 0 {
		size = placeholderDimension
	}

	if err := s.dropCollection(ctx); err != nil {
		return err
	}
	if err := s.createCollection(ctx, size); err != nil {
		return err
	}

	s.exists = true
	s.dim = 0
	return nil
}

func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// PointID maps a chunk id onto the UUID point id Qdrant requires.
func PointID(chunkID string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{
		Uuid: uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String(),
	}}
}

func toPoint(e entity.IndexEntry) *pb.PointStruct {
	return &pb.PointStruct{
		Id:      PointID(e.ID),
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
		Payload: map[string]*pb.Value{
			payloadChunkID:   stringValue(e.ID),
			payloadDocument:  stringValue(e.Document),
			payloadTitle:     stringValue(e.Metadata.Title),
			payloadArticleID: stringValue(e.Metadata.ArticleID),
		},
	}
}

func fromPoint(pt *pb.ScoredPoint) entity.IndexEntry {
	payload := pt.GetPayload()
	vec := pt.GetVectors().GetVector()
	data := vec.GetDense().GetData()
	if len(data) == 0 {
		data = vec.GetData()
	}

	return entity.IndexEntry{
		ID:       payload[payloadChunkID].GetStringValue(),
		Vector:   append(entity.Embedding(nil), data...),
		Document: payload[payloadDocument].GetStringValue(),
		Metadata: entity.EntryMetadata{
			Title:     payload[payloadTitle].GetStringValue(),
			ArticleID: payload[payloadArticleID].GetStringValue(),
		},
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

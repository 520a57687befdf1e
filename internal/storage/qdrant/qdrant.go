// Package qdrant stores documents as points in a Qdrant collection with
// cosine distance. Text and insertion order travel in reserved payload keys.
package qdrant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	textKey = "document"
	seqKey  = "document_seq"

	scrollPage = 256
)

// Store implements storage.DocumentStore on Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	mu        sync.Mutex
	dimension int
	lastSeq   int64
}

// New dials Qdrant's gRPC port and opens the collection.
func New(ctx context.Context, host string, port int, collection string, dimension int) (*Store, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	s, err := NewWithClients(ctx, pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, dimension)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// NewWithClients opens the collection over existing clients. The collection
// is created now when the dimension is known, otherwise on the first Add.
func NewWithClients(
	ctx context.Context,
	points pb.PointsClient,
	collections pb.CollectionsClient,
	collection string,
	dimension int,
) (*Store, error) {
	s := &Store{points: points, collections: collections, collection: collection}
	exists, err := collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: collection})
	if err != nil {
		return nil, fmt.Errorf("qdrant collection %s: %w", collection, err)
	}
	if exists.GetResult().GetExists() {
		info, err := collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
		if err != nil {
			return nil, fmt.Errorf("qdrant collection %s: %w", collection, err)
		}
		stored := int(info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
		if dimension > 0 && stored > 0 && stored != dimension {
			return nil, fmt.Errorf("%w: collection %s has %d, configured %d",
				storage.ErrDimensionMismatch, collection, stored, dimension)
		}
		s.dimension = stored
		return s, nil
	}
	if dimension > 0 {
		if err := s.create(ctx, dimension); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) create(ctx context.Context, dimension int) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(dimension),
			Distance: pb.Distance_Cosine,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
	}
	s.dimension = dimension
	return nil
}

// nextSeq is strictly increasing within one process and follows wall time
// across restarts.
func (s *Store) nextSeq() int64 {
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *Store) Add(
	ctx context.Context,
	text string,
	embedding []float32,
	metadata models.Metadata,
) (string, error) {
	meta, err := storage.NormalizeMetadata(metadata)
	if err != nil {
		return "", err
	}
	for _, k := range []string{textKey, seqKey} {
		if _, ok := meta[k]; ok {
			return "", fmt.Errorf("%w: key %q is reserved", storage.ErrInvalidMetadata, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.CheckEmbedding(s.dimension, embedding); err != nil {
		return "", err
	}
	if s.dimension == 0 {
		if err := s.create(ctx, len(embedding)); err != nil {
			return "", err
		}
	}

	payload := make(map[string]*pb.Value, len(meta)+2)
	for k, v := range meta {
		payload[k] = toValue(v)
	}
	payload[textKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: text}}
	payload[seqKey] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: s.nextSeq()}}

	id := uuid.NewString()
	wait := true
	_, err = s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: embedding}}},
			Payload: payload,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("qdrant upsert: %w", err)
	}
	return id, nil
}

type seqHit struct {
	hit models.Hit
	seq int64
}

func (s *Store) QuerySimilar(
	ctx context.Context,
	embedding []float32,
	limit int,
	pred storage.Predicate,
) ([]models.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}
	dim := s.currentDimension()
	if dim == 0 {
		return nil, nil
	}
	if err := storage.CheckEmbedding(dim, embedding); err != nil {
		return nil, err
	}
	filter, err := toFilter(pred)
	if err != nil {
		return nil, err
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Filter:         filter,
		Limit:          uint64(limit),
		WithPayload:    withPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	found := make([]seqHit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		doc, seq := fromPayload(pt.GetId(), pt.GetPayload())
		d := 1 - float64(pt.GetScore())
		found = append(found, seqHit{
			hit: models.Hit{Document: doc, Distance: min(2, max(0, d))},
			seq: seq,
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].hit.Distance != found[j].hit.Distance {
			return found[i].hit.Distance < found[j].hit.Distance
		}
		return found[i].seq < found[j].seq
	})
	hits := make([]models.Hit, len(found))
	for i, f := range found {
		hits[i] = f.hit
	}
	return hits, nil
}

func (s *Store) GetByPredicate(ctx context.Context, pred storage.Predicate) ([]models.Document, error) {
	filter, err := toFilter(pred)
	if err != nil {
		return nil, err
	}
	if s.currentDimension() == 0 {
		return nil, nil
	}
	type seqDoc struct {
		doc models.Document
		seq int64
	}
	var all []seqDoc
	var offset *pb.PointId
	page := uint32(scrollPage)
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          &page,
			WithPayload:    withPayload(),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}
		for _, pt := range resp.GetResult() {
			doc, seq := fromPayload(pt.GetId(), pt.GetPayload())
			all = append(all, seqDoc{doc: doc, seq: seq})
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	docs := make([]models.Document, len(all))
	for i, d := range all {
		docs[i] = d.doc
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.currentDimension() == 0 {
		return 0, nil
	}
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) currentDimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
}

func toValue(v any) *pb.Value {
	switch n := v.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: n}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: n}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: n}}
	}
	return &pb.Value{Kind: &pb.Value_NullValue{}}
}

func fromValue(v *pb.Value) (any, bool) {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue, true
	case *pb.Value_IntegerValue:
		return k.IntegerValue, true
	case *pb.Value_DoubleValue:
		return k.DoubleValue, true
	case *pb.Value_BoolValue:
		return k.BoolValue, true
	}
	return nil, false
}

func fromPayload(id *pb.PointId, payload map[string]*pb.Value) (models.Document, int64) {
	doc := models.Document{ID: id.GetUuid(), Metadata: make(models.Metadata, len(payload))}
	var seq int64
	for k, v := range payload {
		switch k {
		case textKey:
			doc.Text = v.GetStringValue()
		case seqKey:
			seq = v.GetIntegerValue()
		default:
			if val, ok := fromValue(v); ok {
				doc.Metadata[k] = val
			}
		}
	}
	return doc, seq
}

// toFilter maps equality conditions to Qdrant match conditions. Qdrant has
// no exact match on floats, so float conditions are rejected.
func toFilter(pred storage.Predicate) (*pb.Filter, error) {
	pred, err := pred.Normalize()
	if err != nil || pred.Empty() {
		return nil, err
	}
	must := make([]*pb.Condition, 0, len(pred))
	for _, c := range pred {
		if c.Field == textKey || c.Field == seqKey {
			return nil, fmt.Errorf("%w: key %q is reserved", storage.ErrUnsupportedPredicate, c.Field)
		}
		var match *pb.Match
		switch v := c.Value.(type) {
		case string:
			match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: v}}
		case int64:
			match = &pb.Match{MatchValue: &pb.Match_Integer{Integer: v}}
		case bool:
			match = &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: v}}
		default:
			return nil, fmt.Errorf("%w: field %q: qdrant cannot match %T",
				storage.ErrUnsupportedPredicate, c.Field, c.Value)
		}
		must = append(must, &pb.Condition{ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: c.Field, Match: match},
		}})
	}
	return &pb.Filter{Must: must}, nil
}

var _ storage.DocumentStore = (*Store)(nil)

package semantic

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// pointsAPI is the slice of pb.PointsClient the index uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the index uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// ReviewIndex is the sole owner of all Qdrant operations.
type ReviewIndex struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a ReviewIndex connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*ReviewIndex, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &ReviewIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a ReviewIndex on existing clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *ReviewIndex {
	return &ReviewIndex{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection, if any.
func (v *ReviewIndex) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *ReviewIndex) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *ReviewIndex) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Index upserts review entries. Called by engine/ingest for records below
// the review threshold.
func (v *ReviewIndex) Index(ctx context.Context, entries []ReviewEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: e.RecordID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: e.Embedding},
				},
			},
			Payload: entryPayload(e),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(entries), err)
	}
	return nil
}

// Remove deletes an entry by record ID, used when a reviewed record leaves
// the queue.
func (v *ReviewIndex) Remove(ctx context.Context, recordID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: recordID}}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete %s: %w", recordID, err)
	}
	return nil
}

// SearchSimilar performs k-NN search for review entries close to the given
// embedding. Filters restrict by payload keyword fields (e.g. make).
func (v *ReviewIndex) SearchSimilar(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SimilarResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, val := range filters {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SimilarResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SimilarResult{
			RecordID: r.GetId().GetUuid(),
			Score:    r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "vin":
				sr.VIN = val.GetStringValue()
			case "make":
				sr.Make = val.GetStringValue()
			case "model":
				sr.Model = val.GetStringValue()
			case "model_year":
				sr.ModelYear = int(val.GetIntegerValue())
			case "confidence":
				sr.Confidence = val.GetDoubleValue()
			}
		}
		results[i] = sr
	}
	return results, nil
}

// entryPayload flattens a ReviewEntry into Qdrant payload values.
func entryPayload(e ReviewEntry) map[string]*pb.Value {
	p := map[string]*pb.Value{
		"record_id":  strValue(e.RecordID),
		"dialect":    strValue(e.Dialect),
		"confidence": {Kind: &pb.Value_DoubleValue{DoubleValue: e.Confidence}},
	}
	if e.VIN != "" {
		p["vin"] = strValue(e.VIN)
	}
	if e.Make != "" {
		p["make"] = strValue(e.Make)
	}
	if e.Model != "" {
		p["model"] = strValue(e.Model)
	}
	if e.ModelYear > 0 {
		p["model_year"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.ModelYear)}}
	}
	if len(e.Warnings) > 0 {
		p["warnings"] = strValue(strings.Join(e.Warnings, "\n"))
	}
	return p
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

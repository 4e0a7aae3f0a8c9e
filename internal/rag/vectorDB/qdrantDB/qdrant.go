package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/rag/vectorDB"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadText       = "text"
	payloadMetadata   = "metadata"
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
)

// ClientHolder is the Qdrant-backed vectorDB.Index bound to one collection.
type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	dimension  int
	metric     string
	logger     *logger_i.Logger
}

type Options struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
	Metric     string
}

func New(opts Options) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		APIKey:   opts.APIKey,
		UseTLS:   opts.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	return &ClientHolder{
		QObj:       client,
		collection: opts.Collection,
		dimension:  opts.Dimension,
		metric:     opts.Metric,
		logger:     logger_i.NewLogger("Qdrant").With("collection", opts.Collection),
	}, nil
}

func (db *ClientHolder) Close() error {
	db.logger.Info("Shutting down Qdrant")
	return db.QObj.Close()
}

// EnsureCollection creates the collection when absent. An existing collection
// must have the requested vector size.
func (db *ClientHolder) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	distance, err := distanceFor(metric)
	if err != nil {
		return err
	}

	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		info, err := db.QObj.GetCollectionInfo(ctx, name)
		if err != nil {
			return err
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(dimension) {
			return fmt.Errorf("%w: collection %q has size %d, embedder produces %d", vectorDB.ErrDimensionMismatch, name, size, dimension)
		}
		return nil
	}

	db.logger.Info("Creating collection", "name", name, "dimension", dimension, "metric", metric)
	return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: distance,
		}),
	})
}

func (db *ClientHolder) ensureBound(ctx context.Context) error {
	return db.EnsureCollection(ctx, db.collection, db.dimension, db.metric)
}

func (db *ClientHolder) Upsert(ctx context.Context, documentID int64, chunks []commonModels.Chunk, vectors [][]float32) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, &vectorDB.IndexWriteError{Op: "upsert", Err: fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))}
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if err := db.ensureBound(ctx); err != nil {
		return nil, &vectorDB.IndexWriteError{Op: "ensure collection", Err: err}
	}

	log := db.logger.WithTrace(ctx)
	ids := make([]string, len(chunks))
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		ids[i] = uuid.NewString()
		payload, err := payloadFor(documentID, chunk)
		if err != nil {
			return nil, &vectorDB.IndexWriteError{Op: "upsert", Err: err}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	for _, batch := range batches(points, config.UpsertBatchSize) {
		_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: db.collection,
			Points:         batch,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			log.Error("qdrant upsert failed", "documentId", documentID, "error", err)
			return nil, &vectorDB.IndexWriteError{Op: "upsert", Err: err}
		}
	}

	log.Debug("Upserted points", "documentId", documentID, "count", len(ids))
	return ids, nil
}

func (db *ClientHolder) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return &vectorDB.IndexWriteError{Op: "delete", Err: err}
	}
	return nil
}

// ClearCollection drops the collection and creates it again empty.
func (db *ClientHolder) ClearCollection(ctx context.Context) error {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return &vectorDB.IndexWriteError{Op: "clear", Err: err}
	}
	if exists {
		if err := db.QObj.DeleteCollection(ctx, db.collection); err != nil {
			return &vectorDB.IndexWriteError{Op: "clear", Err: err}
		}
	}
	if err := db.ensureBound(ctx); err != nil {
		return &vectorDB.IndexWriteError{Op: "clear", Err: err}
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, vector []float32, k int, threshold float32) ([]commonModels.ScoredChunk, error) {
	log := db.logger.WithTrace(ctx)

	query := &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(max(k, 1))),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if threshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(threshold)
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := make([]commonModels.ScoredChunk, 0, len(result))
	for _, hit := range result {
		matches = append(matches, chunkFromPoint(hit.GetPayload(), hit.GetScore()))
	}
	log.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func distanceFor(metric string) (qdrant.Distance, error) {
	switch strings.ToLower(metric) {
	case "", "cosine":
		return qdrant.Distance_Cosine, nil
	case "dot":
		return qdrant.Distance_Dot, nil
	case "euclid", "euclidean":
		return qdrant.Distance_Euclid, nil
	case "manhattan":
		return qdrant.Distance_Manhattan, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("unknown distance metric %q", metric)
	}
}

func payloadFor(documentID int64, chunk commonModels.Chunk) (map[string]*qdrant.Value, error) {
	metadata := commonModels.CopyMetadata(chunk.Metadata)
	return qdrant.TryValueMap(map[string]any{
		payloadText:       chunk.Text,
		payloadMetadata:   metadata,
		payloadDocumentID: documentID,
		payloadChunkIndex: int64(chunk.Index),
	})
}

func chunkFromPoint(payload map[string]*qdrant.Value, score float32) commonModels.ScoredChunk {
	metadata := map[string]any{}
	if fields := payload[payloadMetadata].GetStructValue().GetFields(); fields != nil {
		for k, v := range fields {
			metadata[k] = fromValue(v)
		}
	}
	return commonModels.ScoredChunk{
		Text:       payload[payloadText].GetStringValue(),
		Metadata:   metadata,
		Score:      score,
		DocumentID: payload[payloadDocumentID].GetIntegerValue(),
		ChunkIndex: int(payload[payloadChunkIndex].GetIntegerValue()),
	}
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		out := map[string]any{}
		for k, f := range kind.StructValue.GetFields() {
			out[k] = fromValue(f)
		}
		return out
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, fromValue(item))
		}
		return out
	default:
		return nil
	}
}

func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}

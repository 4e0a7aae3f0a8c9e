package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/data/documentStore"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/internal/rag/chunking"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/internal/rag/loader"
	"github.com/akolanti/GoRAG/internal/rag/vectorDB"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// ErrLoadFailed is returned when a source yields no usable content.
var ErrLoadFailed = errors.New("no content could be extracted")

type State string

const (
	StateHashing    State = "hashing"
	StateDedupCheck State = "dedup_check"
	StateLoading    State = "loading"
	StateChunking   State = "chunking"
	StateEmbedding  State = "embedding"
	StateRecord     State = "record_write"
	StateIndexWrite State = "index_write"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

type ContentLoader interface {
	LoadFile(ctx context.Context, path string) (loader.Loaded, error)
	LoadURL(ctx context.Context, rawURL string) (loader.Loaded, error)
}

type Splitter interface {
	Split(units []commonModels.Unit) ([]commonModels.Chunk, chunking.Classification, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc commonModels.Document) (commonModels.Document, error)
	GetByID(ctx context.Context, id int64) (commonModels.Document, error)
	GetByHash(ctx context.Context, hash string) (commonModels.Document, error)
	UpdateVectors(ctx context.Context, id int64, vectorIDs []string, sourceURL string) error
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]commonModels.Document, error)
	Stats(ctx context.Context) (commonModels.DocumentStats, error)
}

type Result struct {
	DocumentID int64  `json:"document_id"`
	Duplicate  bool   `json:"duplicate"`
	Chunks     int    `json:"chunks"`
	Strategy   string `json:"chunking_strategy,omitempty"`
}

// Coordinator runs the ingestion state machine and keeps the metadata store
// and the vector index in step.
type Coordinator struct {
	loader   ContentLoader
	splitter Splitter
	embedder embedding.Embedder
	index    vectorDB.Index
	store    DocumentStore
	dataDir  string
	logger   *logger_i.Logger
}

func NewCoordinator(l ContentLoader, s Splitter, e embedding.Embedder, idx vectorDB.Index, store DocumentStore, dataDir string) *Coordinator {
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	return &Coordinator{
		loader:   l,
		splitter: s,
		embedder: e,
		index:    idx,
		store:    store,
		dataDir:  dataDir,
		logger:   logger_i.NewLogger("IngestionCoordinator"),
	}
}

// run tracks one ingestion through its states.
type run struct {
	log   *logger_i.Logger
	state State
	start time.Time
}

func (c *Coordinator) newRun(ctx context.Context, source string) *run {
	r := &run{log: c.logger.WithTrace(ctx).With("source", source)}
	r.enter(StateHashing)
	return r
}

func (r *run) enter(state State) {
	if r.state != "" && !r.start.IsZero() {
		metrics.CaptureExecutionMetrics("ingest_"+string(r.state), time.Since(r.start))
	}
	r.log.Debug("ingestion state", "from", r.state, "to", state)
	r.state = state
	r.start = time.Now()
}

func (r *run) fail(sourceType commonModels.SourceType, err error) error {
	r.log.Error("ingestion failed", "state", r.state, "error", err)
	metrics.RecordIngestion(string(sourceType), "failed")
	r.state = StateFailed
	return err
}

// IngestFile ingests a file already on disk. Files inside the data directory
// belong to the knowledge base: they are removed again when the content turns
// out to be a duplicate or ingestion fails.
func (c *Coordinator) IngestFile(ctx context.Context, path, filename string) (Result, error) {
	if filename == "" {
		filename = filepath.Base(path)
	}
	r := c.newRun(ctx, filename)

	hash, err := hashFile(path)
	if err != nil {
		c.discardStaged(path)
		return Result{}, r.fail(commonModels.SourceFile, fmt.Errorf("%w: %w", ErrLoadFailed, err))
	}

	result, err := c.ingest(ctx, r, source{
		kind:     commonModels.SourceFile,
		hash:     hash,
		filename: filename,
		filePath: path,
		load:     func(ctx context.Context) (loader.Loaded, error) { return c.loader.LoadFile(ctx, path) },
	})
	if err != nil || result.Duplicate {
		c.discardStaged(path)
	}
	return result, err
}

func (c *Coordinator) IngestURL(ctx context.Context, rawURL, filename string) (Result, error) {
	if _, err := loader.ValidateURL(rawURL); err != nil {
		return Result{}, err
	}
	if filename == "" {
		filename = loader.FilenameFromURL(rawURL)
	}
	r := c.newRun(ctx, rawURL)

	hash, err := hashURL(rawURL)
	if err != nil {
		return Result{}, r.fail(commonModels.SourceURL, err)
	}

	return c.ingest(ctx, r, source{
		kind:      commonModels.SourceURL,
		hash:      hash,
		filename:  filename,
		sourceURL: rawURL,
		load:      func(ctx context.Context) (loader.Loaded, error) { return c.loader.LoadURL(ctx, rawURL) },
	})
}

type source struct {
	kind      commonModels.SourceType
	hash      string
	filename  string
	filePath  string
	sourceURL string
	load      func(ctx context.Context) (loader.Loaded, error)
}

func (c *Coordinator) ingest(ctx context.Context, r *run, src source) (Result, error) {
	r.enter(StateDedupCheck)
	if existing, err := c.store.GetByHash(ctx, src.hash); err == nil {
		return c.duplicate(r, src, existing), nil
	} else if !errors.Is(err, documentStore.ErrNotFound) {
		return Result{}, r.fail(src.kind, fmt.Errorf("dedup lookup: %w", err))
	}

	r.enter(StateLoading)
	loaded, err := src.load(ctx)
	if err != nil {
		return Result{}, r.fail(src.kind, errors.Join(ErrLoadFailed, err))
	}

	r.enter(StateChunking)
	chunks, class, err := c.splitter.Split(loaded.Units)
	if err != nil {
		return Result{}, r.fail(src.kind, fmt.Errorf("chunking: %w", err))
	}
	if len(chunks) == 0 {
		return Result{}, r.fail(src.kind, ErrLoadFailed)
	}
	r.log.Debug("document chunked", "chunks", len(chunks), "score", class.Score, "structured", class.Structured)

	r.enter(StateEmbedding)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return Result{}, r.fail(src.kind, fmt.Errorf("embedding: %w", err))
	}

	r.enter(StateRecord)
	doc, err := c.store.Create(ctx, commonModels.Document{
		Filename:     src.filename,
		SourceType:   src.kind,
		SourceURL:    src.sourceURL,
		FilePath:     src.filePath,
		DocumentType: loaded.DocumentType,
		ContentHash:  src.hash,
	})
	if err != nil {
		// a concurrent ingestion of the same content won the unique constraint
		if existing, lookupErr := c.store.GetByHash(ctx, src.hash); lookupErr == nil {
			return c.duplicate(r, src, existing), nil
		}
		return Result{}, r.fail(src.kind, err)
	}

	r.enter(StateIndexWrite)
	ids, err := c.index.Upsert(ctx, doc.ID, chunks, vectors)
	if err != nil {
		r.log.Error("document record left without vectors", "documentId", doc.ID)
		return Result{DocumentID: doc.ID}, r.fail(src.kind, fmt.Errorf("document %d: %w", doc.ID, err))
	}

	sourceURL := src.sourceURL
	if src.kind == commonModels.SourceFile {
		sourceURL = config.FileServingPrefix + strconv.FormatInt(doc.ID, 10)
	}
	if err := c.store.UpdateVectors(ctx, doc.ID, ids, sourceURL); err != nil {
		return Result{DocumentID: doc.ID}, r.fail(src.kind, fmt.Errorf("document %d: %w", doc.ID, err))
	}

	r.enter(StateDone)
	metrics.RecordIngestion(string(src.kind), "created")
	r.log.Info("document ingested", "documentId", doc.ID, "chunks", len(ids))

	strategy := chunking.StrategyProse
	if class.Structured {
		strategy = chunking.StrategyStructured
	}
	return Result{DocumentID: doc.ID, Chunks: len(ids), Strategy: strategy}, nil
}

func (c *Coordinator) duplicate(r *run, src source, existing commonModels.Document) Result {
	r.enter(StateDone)
	metrics.RecordIngestion(string(src.kind), "duplicate")
	r.log.Info("content already ingested", "documentId", existing.ID)
	return Result{DocumentID: existing.ID, Duplicate: true, Chunks: len(existing.VectorIDs)}
}

// DeleteDocument reports false when no document has the id.
func (c *Coordinator) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	log := c.logger.WithTrace(ctx).With("documentId", id)

	doc, err := c.store.GetByID(ctx, id)
	if errors.Is(err, documentStore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if len(doc.VectorIDs) > 0 {
		if err := c.index.Delete(ctx, doc.VectorIDs); err != nil {
			log.Error("could not delete vectors, keeping record", "error", err)
			return false, err
		}
	}
	if doc.SourceType == commonModels.SourceFile {
		c.removeFile(log, doc.FilePath)
	}

	removed, err := c.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	log.Info("document deleted", "vectors", len(doc.VectorIDs))
	return removed, nil
}

func (c *Coordinator) ClearAll(ctx context.Context) (bool, error) {
	log := c.logger.WithTrace(ctx)

	if err := c.index.ClearCollection(ctx); err != nil {
		log.Warn("could not reset vector collection", "error", err)
	}

	docs, err := c.store.List(ctx)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if doc.SourceType == commonModels.SourceFile {
			c.removeFile(log, doc.FilePath)
		}
	}

	n, err := c.store.DeleteAll(ctx)
	if err != nil {
		return false, err
	}
	log.Info("knowledge base cleared", "documents", n)
	return true, nil
}

func (c *Coordinator) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return c.store.List(ctx)
}

func (c *Coordinator) GetDocument(ctx context.Context, id int64) (commonModels.Document, error) {
	return c.store.GetByID(ctx, id)
}

func (c *Coordinator) Stats(ctx context.Context) (commonModels.DocumentStats, error) {
	return c.store.Stats(ctx)
}

// removeFile only touches files inside the data directory; a path the caller
// ingested from elsewhere stays where it is.
func (c *Coordinator) removeFile(log *logger_i.Logger, path string) {
	if path == "" || !c.ownsPath(path) {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not remove stored file", "path", path, "error", err)
	}
}

func (c *Coordinator) discardStaged(path string) {
	c.removeFile(c.logger, path)
}

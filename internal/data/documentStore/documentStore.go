package documentStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

var ErrNotFound = errors.New("document not found")

type RecordWriteError struct {
	Op  string
	Err error
}

func (e *RecordWriteError) Error() string {
	return fmt.Sprintf("document store %s failed: %v", e.Op, e.Err)
}

func (e *RecordWriteError) Unwrap() error {
	return e.Err
}

type Store struct {
	db      *sql.DB
	dialect string
	logger  *logger_i.Logger
	now     func() time.Time
}

// Open picks the driver from the url scheme: postgres:// and postgresql:// use pgx,
// everything else is treated as a SQLite file.
func Open(databaseURL string) (*Store, error) {
	driver, dsn, dialect, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	if dialect == dialectSQLite {
		if dir := filepath.Dir(strings.TrimPrefix(dsn, "file:")); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dialectSQLite {
		// one connection serialises writers and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger_i.NewLogger("DocumentStore").With("dialect", dialect),
		now:     time.Now,
	}, nil
}

func parseURL(databaseURL string) (driver, dsn, dialect string, err error) {
	switch {
	case databaseURL == "":
		return "", "", "", errors.New("empty database url")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, dialectPostgres, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(databaseURL, "sqlite://"), dialectSQLite, nil
	default:
		return "sqlite", databaseURL, dialectSQLite, nil
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
		id %s,
		filename TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_url TEXT,
		file_path TEXT,
		document_type TEXT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		vector_ids TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, idColumn)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents (content_hash)`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Create inserts doc and returns it with its assigned id and timestamps.
func (s *Store) Create(ctx context.Context, doc commonModels.Document) (commonModels.Document, error) {
	now := s.now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if doc.VectorIDs == nil {
		doc.VectorIDs = []string{}
	}
	vectorIDs, err := json.Marshal(doc.VectorIDs)
	if err != nil {
		return doc, &RecordWriteError{Op: "create", Err: err}
	}

	row := s.db.QueryRowContext(ctx, s.rebind(`INSERT INTO documents
		(filename, source_type, source_url, file_path, document_type, content_hash, vector_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		doc.Filename, string(doc.SourceType), doc.SourceURL, doc.FilePath, doc.DocumentType, doc.ContentHash,
		string(vectorIDs), formatTime(now), formatTime(now))
	if err := row.Scan(&doc.ID); err != nil {
		return doc, &RecordWriteError{Op: "create", Err: err}
	}

	s.logger.Debug("document record created", "id", doc.ID, "filename", doc.Filename)
	return doc, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (commonModels.Document, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id)
	return scanDocument(row)
}

func (s *Store) GetByHash(ctx context.Context, hash string) (commonModels.Document, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE content_hash = ?`), hash)
	return scanDocument(row)
}

func (s *Store) UpdateVectors(ctx context.Context, id int64, vectorIDs []string, sourceURL string) error {
	if vectorIDs == nil {
		vectorIDs = []string{}
	}
	encoded, err := json.Marshal(vectorIDs)
	if err != nil {
		return &RecordWriteError{Op: "update vectors", Err: err}
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE documents SET vector_ids = ?, source_url = ?, updated_at = ? WHERE id = ?`),
		string(encoded), sourceURL, formatTime(s.now().UTC()), id)
	if err != nil {
		return &RecordWriteError{Op: "update vectors", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return false, &RecordWriteError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &RecordWriteError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, &RecordWriteError{Op: "delete all", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) List(ctx context.Context) ([]commonModels.Document, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []commonModels.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (commonModels.DocumentStats, error) {
	stats := commonModels.DocumentStats{
		DocumentTypes: map[string]int{},
		SourceTypes:   map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return stats, err
	}
	if err := s.groupCount(ctx, "document_type", stats.DocumentTypes); err != nil {
		return stats, err
	}
	if err := s.groupCount(ctx, "source_type", stats.SourceTypes); err != nil {
		return stats, err
	}
	stats.FileCount = stats.SourceTypes[string(commonModels.SourceFile)]
	stats.URLCount = stats.SourceTypes[string(commonModels.SourceURL)]
	return stats, nil
}

func (s *Store) groupCount(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM documents GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const selectColumns = `SELECT id, filename, source_type, source_url, file_path, document_type, content_hash, vector_ids, created_at, updated_at FROM documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (commonModels.Document, error) {
	var (
		doc                  commonModels.Document
		sourceType           string
		sourceURL, filePath  sql.NullString
		vectorIDs            string
		createdAt, updatedAt string
	)
	err := row.Scan(&doc.ID, &doc.Filename, &sourceType, &sourceURL, &filePath, &doc.DocumentType,
		&doc.ContentHash, &vectorIDs, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, err
	}

	doc.SourceType = commonModels.SourceType(sourceType)
	doc.SourceURL = sourceURL.String
	doc.FilePath = filePath.String
	if err := json.Unmarshal([]byte(vectorIDs), &doc.VectorIDs); err != nil {
		return doc, fmt.Errorf("decode vector ids for document %d: %w", doc.ID, err)
	}
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return doc, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"constitution-rag/internal/config"
	"constitution-rag/internal/models"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Vector is a pgvector value in its text form, e.g. [1,2,3].
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return v.String(), nil
}

func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func (v *Vector) Scan(src any) error {
	var s string
	switch t := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return fmt.Errorf("invalid vector literal %q", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		*v = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("invalid vector element %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string            `bun:"id,pk"`
	Collection    string            `bun:"collection,notnull"`
	Content       string            `bun:"content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     Vector            `bun:"embedding,notnull,type:vector"`
}

type searchRow struct {
	ID         string            `bun:"id"`
	Content    string            `bun:"content"`
	Metadata   map[string]string `bun:"metadata,type:jsonb"`
	Similarity float32           `bun:"similarity"`
}

// Store keeps entries of one collection in the documents table.
type Store struct {
	db         *bun.DB
	collection string
	vectorSize int
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.StoreConfig) (*sql.DB, error) {
	if cfg.Driver == config.DriverPq {
		return sql.Open("postgres", cfg.DSN)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// NewStore connects to PostgreSQL. A read-only store skips schema creation.
func NewStore(ctx context.Context, cfg *config.StoreConfig, readOnly bool) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if !readOnly {
		if err := InitDB(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	log.Debug().Str("collection", cfg.Collection).Bool("read_only", readOnly).Msg("Connected to pgvector store")
	return &Store{db: db, collection: cfg.Collection, vectorSize: cfg.VectorSize}, nil
}

func (s *Store) AddDocuments(ctx context.Context, entries []models.ChunkEmbedding) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if s.vectorSize > 0 && len(e.Embedding) != s.vectorSize {
			return fmt.Errorf("embedding for %s has %d dimensions, store expects %d", e.ID, len(e.Embedding), s.vectorSize)
		}
		docs = append(docs, Document{
			ID:         e.ID,
			Collection: s.collection,
			Content:    e.Content,
			Metadata:   e.Metadata(),
			Embedding:  Vector(e.Embedding),
		})
	}
	if _, err := s.db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

// Search orders the collection by cosine distance to embedding.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if k <= 0 {
		return nil, nil
	}
	vec := Vector(embedding).String()

	var rows []searchRow
	err := s.db.NewSelect().
		Model((*Document)(nil)).
		Column("id", "content", "metadata").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", vec).
		Where("collection = ?", s.collection).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	out := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Where("collection = ?", s.collection).Count(ctx)
}

// Reset deletes every entry of the collection. When no other collection shares
// the documents table, the table is dropped and recreated instead.
func (s *Store) Reset(ctx context.Context) error {
	others, err := s.db.NewSelect().Model((*Document)(nil)).Where("collection <> ?", s.collection).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	if others > 0 {
		_, err := s.db.NewDelete().Model((*Document)(nil)).Where("collection = ?", s.collection).Exec(ctx)
		return err
	}

	log.Debug().Str("collection", s.collection).Msg("Recreating documents table")
	if err := DropDocuments(ctx, s.db); err != nil {
		return fmt.Errorf("failed to drop documents: %w", err)
	}
	return InitDB(ctx, s.db)
}

// drop table documents
func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

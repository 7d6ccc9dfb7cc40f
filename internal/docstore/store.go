package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/stepple/internal/logger"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// Document is a stored document and its metadata.
type Document struct {
	Ref
	Data      Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a document store over SQLite. Writes are upserts; with merge
// set, fields absent from the write are left untouched.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to resolve ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store on db. The documents table must already exist.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the document at path or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*Document, error) {
	log := logger.FromContext(ctx).WithPrefix("docstore")
	ref, err := ParseRef(path)
	if err != nil {
		return nil, err
	}

	query, args, err := sqlBuilder.
		Select("data", "created_at", "updated_at").
		From("documents").
		Where(squirrel.Eq{"path": ref.Path}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var raw string
	doc := &Document{Ref: ref}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("document not found: %s", ref.Path)
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error("failed to get document %s: %v", ref.Path, err)
		return nil, err
	}
	if doc.Data, err = decodeFields(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.Path, err)
	}
	return doc, nil
}

// Set writes a single document. See Batch.Set.
func (s *Store) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	return s.Batch().Set(path, fields, merge).Commit(ctx)
}

// CollectionGroup returns every document in a collection with the given
// id, at any depth, whose fields equal all of where.
func (s *Store) CollectionGroup(ctx context.Context, collection string, where Fields) ([]*Document, error) {
	log := logger.FromContext(ctx).WithPrefix("docstore")

	q := sqlBuilder.
		Select("path", "data", "created_at", "updated_at").
		From("documents").
		Where(squirrel.Eq{"collection": collection}).
		OrderBy("path ASC")

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fieldNameRe.MatchString(k) {
			return nil, fmt.Errorf("invalid field name %q", k)
		}
		q = q.Where(squirrel.Expr("json_extract(data, ?) = ?", "$."+k, where[k]))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("collection group query on %s failed: %v", collection, err)
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var path, raw string
		var created, updated time.Time
		if err := rows.Scan(&path, &raw, &created, &updated); err != nil {
			return nil, err
		}
		ref, err := ParseRef(path)
		if err != nil {
			return nil, err
		}
		data, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		docs = append(docs, &Document{Ref: ref, Data: data, CreatedAt: created, UpdatedAt: updated})
	}
	log.Debug("collection group %s matched %d documents", collection, len(docs))
	return docs, rows.Err()
}

type write struct {
	ref    Ref
	fields Fields
	merge  bool
}

// Batch groups writes that commit atomically.
type Batch struct {
	store  *Store
	writes []write
	err    error
}

// Batch starts an empty write batch.
func (s *Store) Batch() *Batch {
	return &Batch{store: s}
}

// Set queues a write of fields to path. With merge, existing fields not
// named in fields are preserved; otherwise the document is replaced.
func (b *Batch) Set(path string, fields Fields, merge bool) *Batch {
	if b.err != nil {
		return b
	}
	ref, err := ParseRef(path)
	if err != nil {
		b.err = err
		return b
	}
	b.writes = append(b.writes, write{ref: ref, fields: fields, merge: merge})
	return b
}

// Len returns the number of queued writes.
func (b *Batch) Len() int {
	return len(b.writes)
}

// Commit applies every queued write in one transaction.
func (b *Batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if len(b.writes) == 0 {
		return nil
	}
	now := b.store.now()
	return tx(ctx, b.store.db, func(tx *sql.Tx) error {
		for _, w := range b.writes {
			if err := applyWrite(ctx, tx, w, now); err != nil {
				return fmt.Errorf("write %s: %w", w.ref.Path, err)
			}
		}
		return nil
	})
}

func applyWrite(ctx context.Context, tx *sql.Tx, w write, now time.Time) error {
	data := w.fields.resolve(now)

	if w.merge {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, w.ref.Path).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			existing, err := decodeFields(raw)
			if err != nil {
				return err
			}
			for k, v := range data {
				existing[k] = v
			}
			data = existing
		}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query, args, err := sqlBuilder.
		Insert("documents").
		Columns("path", "collection", "parent_path", "doc_id", "data", "created_at", "updated_at").
		Values(w.ref.Path, w.ref.Collection, w.ref.Parent, w.ref.ID, string(encoded), now.UTC(), now.UTC()).
		Suffix("ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("docstore")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	log.Debug("transaction committed")
	return nil
}

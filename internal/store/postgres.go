package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatsapp-notifier/internal/domain"
)

// Postgres backs the document store with a single documents table keyed by
// (instance_id, collection, doc_id) holding the body as jsonb. Atomic
// batches map onto transactions.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Get(ctx context.Context, ref Ref) (*Document, error) {
	const q = `
SELECT doc
FROM documents
WHERE instance_id = $1 AND collection = $2 AND doc_id = $3
`
	var raw []byte
	err := s.pool.QueryRow(ctx, q, ref.Instance, ref.Collection, ref.DocID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decodeDocument(ref, raw)
}

func (s *Postgres) Set(ctx context.Context, ref Ref, doc any, merge bool) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.pool.Exec(ctx, setQuery, ref.Instance, ref.Collection, ref.DocID, raw, merge)
	return err
}

func (s *Postgres) Delete(ctx context.Context, ref Ref) error {
	// Deleting an absent document is a no-op; redeliveries depend on that.
	_, err := s.pool.Exec(ctx, deleteQuery, ref.Instance, ref.Collection, ref.DocID)
	return err
}

func (s *Postgres) Query(ctx context.Context, instance, collection, field, value string) ([]Document, error) {
	const q = `
SELECT doc_id, doc
FROM documents
WHERE instance_id = $1 AND collection = $2 AND doc #>> string_to_array($3, '.') = $4
`
	rows, err := s.pool.Query(ctx, q, instance, collection, field, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var docID string
		var raw []byte
		if err := rows.Scan(&docID, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDocument(Ref{Instance: instance, Collection: collection, DocID: docID}, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *Postgres) Add(ctx context.Context, instance, collection string, doc any) (string, error) {
	docID := uuid.NewString()
	if err := s.Set(ctx, Ref{Instance: instance, Collection: collection, DocID: docID}, doc, false); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *Postgres) Union(ctx context.Context, ref Ref, field string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	addition, err := json.Marshal(values)
	if err != nil {
		return err
	}
	// Set-union append: existing elements win, order of first appearance kept.
	const q = `
UPDATE documents
SET doc = jsonb_set(doc, ARRAY[$4], (
	SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
	FROM (
		SELECT DISTINCT ON (elem) elem, ord
		FROM jsonb_array_elements(COALESCE(doc -> $4, '[]'::jsonb) || $5::jsonb) WITH ORDINALITY AS t(elem, ord)
		ORDER BY elem, ord
	) dedup
), true),
    updated_at = now()
WHERE instance_id = $1 AND collection = $2 AND doc_id = $3
`
	cmd, err := s.pool.Exec(ctx, q, ref.Instance, ref.Collection, ref.DocID, field, addition)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) Increment(ctx context.Context, ref Ref, field string, delta int64) error {
	const q = `
UPDATE documents
SET doc = jsonb_set(doc, ARRAY[$4], to_jsonb(COALESCE((doc ->> $4)::numeric, 0) + $5), true),
    updated_at = now()
WHERE instance_id = $1 AND collection = $2 AND doc_id = $3
`
	cmd, err := s.pool.Exec(ctx, q, ref.Instance, ref.Collection, ref.DocID, field, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) Batch() Batch {
	return &pgBatch{pool: s.pool}
}

type batchOp struct {
	ref    Ref
	doc    []byte
	merge  bool
	delete bool
	encErr error
}

type pgBatch struct {
	pool *pgxpool.Pool
	ops  []batchOp
}

func (b *pgBatch) Set(ref Ref, doc any, merge bool) {
	raw, err := json.Marshal(doc)
	b.ops = append(b.ops, batchOp{ref: ref, doc: raw, merge: merge, encErr: err})
}

func (b *pgBatch) Delete(ref Ref) {
	b.ops = append(b.ops, batchOp{ref: ref, delete: true})
}

func (b *pgBatch) Commit(ctx context.Context) error {
	for _, op := range b.ops {
		if op.encErr != nil {
			return fmt.Errorf("encode document %s: %w", op.ref.DocID, op.encErr)
		}
	}
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.Exec(ctx, deleteQuery, op.ref.Instance, op.ref.Collection, op.ref.DocID); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, setQuery, op.ref.Instance, op.ref.Collection, op.ref.DocID, op.doc, op.merge); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const setQuery = `
INSERT INTO documents (instance_id, collection, doc_id, doc)
VALUES ($1, $2, $3, $4)
ON CONFLICT (instance_id, collection, doc_id) DO UPDATE
SET doc = CASE WHEN $5 THEN documents.doc || EXCLUDED.doc ELSE EXCLUDED.doc END,
    updated_at = now()
`

const deleteQuery = `
DELETE FROM documents
WHERE instance_id = $1 AND collection = $2 AND doc_id = $3
`

func decodeDocument(ref Ref, raw []byte) (*Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document %s/%s/%s: %w", ref.Instance, ref.Collection, ref.DocID, err)
	}
	return &Document{Ref: ref, Data: data}, nil
}

// PathOf renders the canonical document path, used in error records and logs.
func PathOf(ref Ref) string {
	return strings.Join([]string{"merchant", ref.Instance, ref.Collection, ref.DocID}, "/")
}

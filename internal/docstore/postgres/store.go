package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shadow/internal/docstore"
	"shadow/pkg/platform/sentinel"
)

// Store keeps every collection in one JSONB table (see the documents migration).
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindOne(ctx context.Context, collection, key string) (docstore.Document, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return decode(body)
}

// Upsert is a single INSERT .. ON CONFLICT statement, so the row lock taken by
// Postgres is the only synchronisation. jsonb || lets patch fields win.
func (s *Store) Upsert(ctx context.Context, collection, key string, patch, setOnInsert docstore.Document) error {
	patchJSON, err := encode(patch)
	if err != nil {
		return err
	}
	insertJSON, err := encode(setOnInsert)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body)
		VALUES ($1, $2, $3::jsonb || $4::jsonb)
		ON CONFLICT (collection, key)
		DO UPDATE SET body = documents.body || $4::jsonb, updated_at = now()`,
		collection, key, insertJSON, patchJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *Store) FindMany(ctx context.Context, collection string, filter docstore.Filter, sort *docstore.Sort, limit int) ([]docstore.Document, error) {
	query, args, err := buildFindMany(collection, filter, sort, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Close is a no-op; the *sql.DB is owned by the caller.
func (s *Store) Close() error {
	return nil
}

func buildFindMany(collection string, filter docstore.Filter, sort *docstore.Sort, limit int) (string, []any, error) {
	var b strings.Builder
	args := []any{collection}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("SELECT body FROM documents WHERE collection = $1")

	for field, want := range filter.Equals {
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter value for %s: %w", field, err)
		}
		fmt.Fprintf(&b, " AND body -> %s::text = %s::jsonb", arg(field), arg(string(wantJSON)))
	}

	if c := filter.Contains; c != nil && len(c.Fields) > 0 {
		pattern := arg("%" + escapeLike(c.Substring) + "%")
		clauses := make([]string, 0, len(c.Fields))
		for _, field := range c.Fields {
			clauses = append(clauses, fmt.Sprintf(`(body ->> %s::text) ILIKE %s ESCAPE '\'`, arg(field), pattern))
		}
		b.WriteString(" AND (" + strings.Join(clauses, " OR ") + ")")
	}

	if sort != nil && sort.Field != "" {
		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY body -> %s::text %s NULLS LAST, key", arg(sort.Field), dir)
	} else {
		b.WriteString(" ORDER BY key")
	}

	if limit > 0 {
		b.WriteString(" LIMIT " + arg(limit))
	}
	return b.String(), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func encode(doc docstore.Document) (string, error) {
	if doc == nil {
		return "{}", nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decode(body []byte) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

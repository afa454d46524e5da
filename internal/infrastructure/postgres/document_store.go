package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
)

const uniqueViolation = "23505"

var errUnsupportedQuery = errors.New("unsupported query")

// DBTX is the subset of pgxpool.Pool used by the store.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentStore keeps collection documents as JSONB rows of the documents table.
type DocumentStore struct {
	db DBTX
}

func NewDocumentStore(db DBTX) *DocumentStore {
	return &DocumentStore{db: db}
}

// listQuery is a rendered collection filter. limit is -1 when no Limit was given.
type listQuery struct {
	where string
	args  []any
	limit int
}

func (q listQuery) countSQL() string {
	return `SELECT COUNT(*) FROM documents WHERE ` + q.where
}

func (q listQuery) selectSQL() (string, []any) {
	sql := `
		SELECT id, created_at, updated_at, data
		FROM documents
		WHERE ` + q.where + `
		ORDER BY created_at, id`
	if q.limit < 0 {
		return sql, q.args
	}
	args := append(append([]any{}, q.args...), q.limit)
	return sql + fmt.Sprintf(" LIMIT $%d", len(args)), args
}

// buildListQuery renders queries into a filter. Equal compares the attribute as text
// against any of the values.
func buildListQuery(databaseID, collectionID string, queries []repo.Query) (listQuery, error) {
	lq := listQuery{args: []any{databaseID, collectionID}, limit: -1}
	where := []string{"database_id = $1", "collection_id = $2"}

	for _, q := range queries {
		switch q.Method {
		case repo.QueryEqual:
			if q.Attribute == "" || len(q.Values) == 0 {
				return listQuery{}, fmt.Errorf("%w: equal needs an attribute and values", errUnsupportedQuery)
			}
			values := make([]string, 0, len(q.Values))
			for _, v := range q.Values {
				values = append(values, fmt.Sprint(v))
			}
			lq.args = append(lq.args, q.Attribute, values)
			where = append(where, fmt.Sprintf("data->>($%d::text) = ANY($%d::text[])", len(lq.args)-1, len(lq.args)))
		case repo.QueryLimit:
			if len(q.Values) != 1 {
				return listQuery{}, fmt.Errorf("%w: limit needs one value", errUnsupportedQuery)
			}
			n, err := strconv.Atoi(fmt.Sprint(q.Values[0]))
			if err != nil || n < 0 {
				return listQuery{}, fmt.Errorf("%w: invalid limit %v", errUnsupportedQuery, q.Values[0])
			}
			lq.limit = n
		default:
			return listQuery{}, fmt.Errorf("%w: %q", errUnsupportedQuery, q.Method)
		}
	}
	lq.where = strings.Join(where, " AND ")
	return lq, nil
}

// ListDocuments returns the matching documents oldest first. Total counts every
// match regardless of Limit.
func (s *DocumentStore) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...repo.Query) (*entity.DocumentList, error) {
	lq, err := buildListQuery(databaseID, collectionID, queries)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, lq.countSQL(), lq.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	list := &entity.DocumentList{Total: int(total), Documents: []entity.Document{}}
	if total == 0 || lq.limit == 0 {
		return list, nil
	}

	sql, args := lq.selectSQL()
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d   = entity.Document{DatabaseID: databaseID, CollectionID: collectionID}
			raw []byte
		)
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal(raw, &d.Data); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
		list.Documents = append(list.Documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return list, nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*entity.Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	d := &entity.Document{ID: documentID, DatabaseID: databaseID, CollectionID: collectionID, Data: data}
	row := s.db.QueryRow(ctx, `
		INSERT INTO documents (id, database_id, collection_id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, documentID, databaseID, collectionID, raw)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repo.ErrDocumentExists
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	d.CreatedAt, d.UpdatedAt = createdAt, updatedAt
	return d, nil
}

var _ repo.DocumentStore = (*DocumentStore)(nil)

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
)

func TestBuildListQuery_Equal(t *testing.T) {
	lq, err := buildListQuery("main", "users", []repo.Query{repo.Equal("email", "ann@example.com")})
	require.NoError(t, err)

	assert.Equal(t, "database_id = $1 AND collection_id = $2 AND data->>($3::text) = ANY($4::text[])", lq.where)
	assert.Equal(t, []any{"main", "users", "email", []string{"ann@example.com"}}, lq.args)
	sql, args := lq.selectSQL()
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, lq.args, args)
	assert.Contains(t, lq.countSQL(), "COUNT(*)")
}

func TestBuildListQuery_EqualAndLimit(t *testing.T) {
	lq, err := buildListQuery("main", "users", []repo.Query{
		repo.Equal("accountId", "a1", "a2"),
		repo.Limit(1),
	})
	require.NoError(t, err)

	sql, args := lq.selectSQL()
	assert.Contains(t, sql, "LIMIT $5")
	assert.Equal(t, []any{"main", "users", "accountId", []string{"a1", "a2"}, 1}, args)
	assert.Len(t, lq.args, 4)
}

func TestBuildListQuery_Invalid(t *testing.T) {
	cases := map[string][]repo.Query{
		"unknown method":       {{Method: "search", Attribute: "name", Values: []any{"x"}}},
		"equal without values": {repo.Equal("email")},
		"negative limit":       {repo.Limit(-1)},
	}
	for name, queries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildListQuery("main", "users", queries)
			assert.ErrorIs(t, err, errUnsupportedQuery)
		})
	}
}

// fakeDB scripts the answers of a pgx pool.
type fakeDB struct {
	count    int64
	countErr error
	rows     [][]any
	rowErr   error
	queries  []string

	inserted []any
	created  time.Time
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	if f.rowErr != nil {
		return fakeRow{err: f.rowErr}
	}
	if f.countErr != nil {
		return fakeRow{err: f.countErr}
	}
	if strings.Contains(sql, "INSERT") {
		f.inserted = args
		return fakeRow{values: []any{f.created, f.created}}
	}
	return fakeRow{values: []any{f.count}}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.idx++; return r.idx < len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error                       { return assign(r.rows[r.idx], dest) }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case *[]byte:
			*d = v.([]byte)
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("scan: unsupported target %T", dest[i])
		}
	}
	return nil
}

func docRow(t *testing.T, id string, created time.Time, data map[string]any) []any {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return []any{id, created, created, raw}
}

func TestListDocuments_DecodesRowsAndCountsAllMatches(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{count: 3, rows: [][]any{docRow(t, "d1", at, map[string]any{"email": "ann@example.com", "accountId": "a1"})}}
	store := NewDocumentStore(db)

	list, err := store.ListDocuments(context.Background(), "main", "users", repo.Equal("email", "ann@example.com"), repo.Limit(1))
	require.NoError(t, err)

	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Documents, 1)
	doc := list.Documents[0]
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "users", doc.CollectionID)
	assert.Equal(t, at, doc.CreatedAt)
	assert.Equal(t, "a1", doc.String("accountId"))
}

func TestListDocuments_ZeroLimitKeepsTotal(t *testing.T) {
	db := &fakeDB{count: 2}
	store := NewDocumentStore(db)

	list, err := store.ListDocuments(context.Background(), "main", "users", repo.Limit(0))
	require.NoError(t, err)

	assert.Equal(t, 2, list.Total)
	assert.Empty(t, list.Documents)
	assert.Len(t, db.queries, 1)
}

func TestListDocuments_NoMatchesSkipsSelect(t *testing.T) {
	db := &fakeDB{}
	store := NewDocumentStore(db)

	list, err := store.ListDocuments(context.Background(), "main", "users", repo.Equal("email", "nobody@example.com"))
	require.NoError(t, err)

	assert.Zero(t, list.Total)
	assert.NotNil(t, list.Documents)
	assert.Len(t, db.queries, 1)
}

func TestListDocuments_Errors(t *testing.T) {
	db := &fakeDB{countErr: errors.New("connection reset")}
	_, err := NewDocumentStore(db).ListDocuments(context.Background(), "main", "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count documents")

	at := time.Now()
	db = &fakeDB{count: 1, rows: [][]any{{"d1", at, at, []byte("not json")}}}
	_, err = NewDocumentStore(db).ListDocuments(context.Background(), "main", "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode document d1")
}

func TestCreateDocument(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{created: at}
	store := NewDocumentStore(db)

	doc, err := store.CreateDocument(context.Background(), "main", "users", "d1", map[string]any{"fullName": "Ann"})
	require.NoError(t, err)

	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, at, doc.CreatedAt)
	assert.Equal(t, "Ann", doc.String("fullName"))
	require.Len(t, db.inserted, 4)
	assert.JSONEq(t, `{"fullName":"Ann"}`, string(db.inserted[3].([]byte)))
}

func TestCreateDocument_DuplicateID(t *testing.T) {
	db := &fakeDB{rowErr: &pgconn.PgError{Code: uniqueViolation}}
	_, err := NewDocumentStore(db).CreateDocument(context.Background(), "main", "users", "d1", map[string]any{})
	assert.ErrorIs(t, err, repo.ErrDocumentExists)

	db = &fakeDB{rowErr: errors.New("connection reset")}
	_, err = NewDocumentStore(db).CreateDocument(context.Background(), "main", "users", "d1", map[string]any{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repo.ErrDocumentExists)
}

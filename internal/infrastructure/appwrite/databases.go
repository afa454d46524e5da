package appwrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkdatabases "github.com/appwrite/sdk-for-go/databases"
	"github.com/appwrite/sdk-for-go/query"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
)

type databases struct {
	srv     *sdkdatabases.Databases
	timeout time.Duration
}

func toQueries(queries []repo.Query) ([]string, error) {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		switch q.Method {
		case repo.QueryEqual:
			out = append(out, query.Equal(q.Attribute, q.Values))
		case repo.QueryLimit:
			if len(q.Values) != 1 {
				return nil, fmt.Errorf("appwrite: bad limit %v", q.Values)
			}
			n, ok := q.Values[0].(int)
			if !ok {
				return nil, fmt.Errorf("appwrite: bad limit %v", q.Values)
			}
			out = append(out, query.Limit(n))
		default:
			return nil, fmt.Errorf("appwrite: unsupported query %q", q.Method)
		}
	}
	return out, nil
}

func (d *databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...repo.Query) (*entity.DocumentList, error) {
	qs, err := toQueries(queries)
	if err != nil {
		return nil, err
	}
	res, err := call(ctx, d.timeout, func() (decoder, error) {
		return d.srv.ListDocuments(databaseID, collectionID, d.srv.WithListDocumentsQueries(qs))
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Total     int              `json:"total"`
		Documents []map[string]any `json:"documents"`
	}
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("appwrite: decode documents: %w", err)
	}
	list := &entity.DocumentList{Total: out.Total, Documents: make([]entity.Document, 0, len(out.Documents))}
	for _, raw := range out.Documents {
		list.Documents = append(list.Documents, toDocument(raw))
	}
	return list, nil
}

func (d *databases) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*entity.Document, error) {
	res, err := call(ctx, d.timeout, func() (decoder, error) {
		return d.srv.CreateDocument(databaseID, collectionID, documentID, data)
	})
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := res.Decode(&raw); err != nil {
		return nil, fmt.Errorf("appwrite: decode document: %w", err)
	}
	doc := toDocument(raw)
	return &doc, nil
}

// toDocument splits system ($-prefixed) keys from attributes.
func toDocument(raw map[string]any) entity.Document {
	d := entity.Document{Data: map[string]any{}}
	for k, v := range raw {
		if !strings.HasPrefix(k, "$") {
			d.Data[k] = v
			continue
		}
		s := fmt.Sprint(v)
		switch k {
		case "$id":
			d.ID = s
		case "$databaseId":
			d.DatabaseID = s
		case "$collectionId":
			d.CollectionID = s
		case "$createdAt":
			d.CreatedAt = parseTime(s)
		case "$updatedAt":
			d.UpdatedAt = parseTime(s)
		}
	}
	return d
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

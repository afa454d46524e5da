// Package search keeps a best-effort Elasticsearch copy of user records for lookup by name or email.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// UserIndex writes and queries the users index. A nil ES client turns it into a no-op.
type UserIndex struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewUserIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndex {
	return &UserIndex{ES: es, Index: index, Logger: logger}
}

func (x *UserIndex) enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

type userDoc struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	AccountID string `json:"accountId"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func toDoc(u *entity.User) userDoc {
	d := userDoc{ID: u.ID, FullName: u.FullName, Email: u.Email, Avatar: u.AvatarURL, AccountID: u.AccountID}
	if !u.CreatedAt.IsZero() {
		d.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return d
}

// IndexUser upserts u keyed by its record id.
func (x *UserIndex) IndexUser(ctx context.Context, u *entity.User) error {
	if !x.enabled() || u == nil {
		return nil
	}
	b, err := json.Marshal(toDoc(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		if x.Logger != nil {
			x.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if x.Logger != nil {
			x.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
		}
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// SearchUsers runs a multi_match over email and full name. Size is clamped to 1..50, default 10.
func (x *UserIndex) SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error) {
	if !x.enabled() {
		return []entity.User{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "fullName"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		u := entity.User{
			ID:        h.Source.ID,
			FullName:  h.Source.FullName,
			Email:     h.Source.Email,
			AvatarURL: h.Source.Avatar,
			AccountID: h.Source.AccountID,
		}
		if u.ID == "" {
			u.ID = h.ID
		}
		if t, err := time.Parse(time.RFC3339Nano, h.Source.CreatedAt); err == nil {
			u.CreatedAt = t
		}
		out = append(out, u)
	}
	return out, nil
}

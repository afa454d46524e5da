// Package appwrite adapts the Appwrite Go SDK to the backend interfaces.
package appwrite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/appwrite/sdk-for-go/appwrite"

	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
)

// Error is an error returned by the API.
type Error struct {
	Status  int
	Type    string
	Message string
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("appwrite: %s (%d %s)", e.Message, e.Status, e.Type)
	}
	return fmt.Sprintf("appwrite: %s (%d)", e.Message, e.Status)
}

// Unwrap maps API error types onto the backend sentinel errors.
func (e *Error) Unwrap() error {
	switch e.Type {
	case "user_invalid_token", "user_invalid_credentials":
		return repo.ErrInvalidToken
	case "general_unauthorized_scope", "user_session_not_found", "user_unauthorized":
		return repo.ErrUnauthorized
	case "document_already_exists":
		return repo.ErrDocumentExists
	}
	if e.Status == http.StatusUnauthorized {
		return repo.ErrUnauthorized
	}
	return nil
}

// sdkError is the accessor set of the SDK's AppwriteError.
type sdkError interface {
	error
	GetStatusCode() int
	GetType() string
	GetMessage() string
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var ae sdkError
	if !errors.As(err, &ae) {
		return fmt.Errorf("appwrite: %w", err)
	}
	out := &Error{Status: ae.GetStatusCode(), Type: ae.GetType(), Message: ae.GetMessage()}
	if out.Message == "" {
		out.Message = http.StatusText(out.Status)
	}
	return out
}

// Config is the project the adapter talks to.
type Config struct {
	Endpoint string // e.g. https://cloud.appwrite.io/v1
	Project  string
	APIKey   string
	Timeout  time.Duration
}

// Client implements repository.ClientFactory on top of the SDK.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{cfg: cfg}
}

// Admin authenticates with the API key.
func (c *Client) Admin(_ context.Context) (*repo.AdminClient, error) {
	clt := sdk.NewClient(
		sdk.WithEndpoint(c.cfg.Endpoint),
		sdk.WithProject(c.cfg.Project),
		sdk.WithKey(c.cfg.APIKey),
	)
	return &repo.AdminClient{
		Databases: &databases{srv: sdk.NewDatabases(clt), timeout: c.cfg.Timeout},
		Account:   &account{srv: sdk.NewAccount(clt), timeout: c.cfg.Timeout},
	}, nil
}

// Session authenticates as the owner of secret.
func (c *Client) Session(_ context.Context, secret string) (*repo.SessionClient, error) {
	if secret == "" {
		return nil, repo.ErrNoSession
	}
	clt := sdk.NewClient(
		sdk.WithEndpoint(c.cfg.Endpoint),
		sdk.WithProject(c.cfg.Project),
		sdk.WithSession(secret),
	)
	return &repo.SessionClient{
		Databases: &databases{srv: sdk.NewDatabases(clt), timeout: c.cfg.Timeout},
		Account:   &account{srv: sdk.NewAccount(clt), timeout: c.cfg.Timeout},
	}, nil
}

// decoder is implemented by every SDK response model.
type decoder interface {
	Decode(value interface{}) error
}

// call runs an SDK request, returning early when ctx ends first.
// The SDK takes no context, so an abandoned request finishes in the background.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, wrapErr(r.err)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

var _ repo.ClientFactory = (*Client)(nil)

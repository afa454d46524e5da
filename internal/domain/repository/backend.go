package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
)

// CurrentSession addresses the session the caller is authenticated with.
const CurrentSession = "current"

// MaxPasscodeAttempts is the number of wrong passcodes after which an email token is revoked.
const MaxPasscodeAttempts = 5

var (
	// ErrNoSession is returned when a session client is requested without a secret.
	ErrNoSession = errors.New("no session")
	// ErrInvalidToken is returned when a passcode does not match or has expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized is returned when a session secret does not resolve to a live session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDocumentExists is returned when a document id is already taken in a collection.
	ErrDocumentExists = errors.New("document already exists")
)

// DocumentStore reads and writes backend collections.
type DocumentStore interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (*entity.DocumentList, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*entity.Document, error)
}

// IdentityProvider issues passcodes and exchanges them for sessions. Requires elevated access.
type IdentityProvider interface {
	// CreateEmailToken sends a passcode to email. For an email already known to the
	// provider the returned token carries the existing user id instead of userID.
	CreateEmailToken(ctx context.Context, userID, email string) (*entity.Token, error)
	CreateSession(ctx context.Context, userID, secret string) (*entity.Session, error)
}

// AccountService acts on behalf of the session owner.
type AccountService interface {
	Get(ctx context.Context) (*entity.Account, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AdminClient is the elevated-privilege view of the backend.
type AdminClient struct {
	Databases DocumentStore
	Account   IdentityProvider
}

// SessionClient is the caller-scoped view of the backend.
type SessionClient struct {
	Databases DocumentStore
	Account   AccountService
}

// ClientFactory opens backend clients for a single request.
type ClientFactory interface {
	Admin(ctx context.Context) (*AdminClient, error)
	// Session returns ErrNoSession when secret is empty.
	Session(ctx context.Context, secret string) (*SessionClient, error)
}

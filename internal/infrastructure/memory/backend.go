// Package memory is an in-process backend for local development and tests.
// Passcodes are handed to OnToken instead of being emailed.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/ids"
)

type pendingToken struct {
	code   string
	expire time.Time
	misses int
}

type session struct {
	userID string
	expire time.Time
}

// Backend keeps collections, accounts, tokens and sessions in maps.
type Backend struct {
	mu        sync.Mutex
	docs      map[string][]entity.Document // databaseID/collectionID -> documents
	accounts  map[string]entity.Account    // userID -> account
	byEmail   map[string]string            // email -> userID
	tokens    map[string]pendingToken      // userID -> token
	sessions  map[string]session           // secret -> session
	sessionID map[string]string            // secret -> session id

	TokenTTL   time.Duration
	SessionTTL time.Duration
	// OnToken receives every issued passcode.
	OnToken func(email, code string)
	now     func() time.Time
}

func NewBackend(tokenTTL, sessionTTL time.Duration, onToken func(email, code string)) *Backend {
	return &Backend{
		docs:       map[string][]entity.Document{},
		accounts:   map[string]entity.Account{},
		byEmail:    map[string]string{},
		tokens:     map[string]pendingToken{},
		sessions:   map[string]session{},
		sessionID:  map[string]string{},
		TokenTTL:   tokenTTL,
		SessionTTL: sessionTTL,
		OnToken:    onToken,
		now:        time.Now,
	}
}

// Admin implements repository.ClientFactory.
func (b *Backend) Admin(_ context.Context) (*repo.AdminClient, error) {
	return &repo.AdminClient{Databases: b, Account: b}, nil
}

// Session implements repository.ClientFactory.
func (b *Backend) Session(_ context.Context, secret string) (*repo.SessionClient, error) {
	if secret == "" {
		return nil, repo.ErrNoSession
	}
	return &repo.SessionClient{Databases: b, Account: &sessionAccount{b: b, secret: secret}}, nil
}

func collectionKey(databaseID, collectionID string) string {
	return databaseID + "/" + collectionID
}

func (b *Backend) ListDocuments(_ context.Context, databaseID, collectionID string, queries ...repo.Query) (*entity.DocumentList, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := -1
	var matched []entity.Document
	for _, d := range b.docs[collectionKey(databaseID, collectionID)] {
		if matches(d, queries) {
			matched = append(matched, d)
		}
	}
	for _, q := range queries {
		if q.Method == repo.QueryLimit && len(q.Values) == 1 {
			if n, ok := q.Values[0].(int); ok {
				limit = n
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	list := &entity.DocumentList{Total: len(matched), Documents: matched}
	if limit >= 0 && limit < len(matched) {
		list.Documents = matched[:limit]
	}
	return list, nil
}

func matches(d entity.Document, queries []repo.Query) bool {
	for _, q := range queries {
		if q.Method != repo.QueryEqual {
			continue
		}
		got := d.String(q.Attribute)
		hit := false
		for _, v := range q.Values {
			if fmt.Sprint(v) == got {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (b *Backend) CreateDocument(_ context.Context, databaseID, collectionID, documentID string, data map[string]any) (*entity.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := collectionKey(databaseID, collectionID)
	for _, d := range b.docs[key] {
		if d.ID == documentID {
			return nil, repo.ErrDocumentExists
		}
	}
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	now := b.now()
	doc := entity.Document{
		ID:           documentID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Data:         copied,
	}
	b.docs[key] = append(b.docs[key], doc)
	return &doc, nil
}

func (b *Backend) CreateEmailToken(_ context.Context, userID, email string) (*entity.Token, error) {
	code, err := helpers.GenOTPCode()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if existing, ok := b.byEmail[email]; ok {
		userID = existing
	} else {
		b.byEmail[email] = userID
		b.accounts[userID] = entity.Account{ID: userID, Email: email}
	}
	expire := b.now().Add(b.TokenTTL)
	b.tokens[userID] = pendingToken{code: code, expire: expire}
	onToken := b.OnToken
	b.mu.Unlock()

	if onToken != nil {
		onToken(email, code)
	}
	return &entity.Token{ID: ids.Unique(), UserID: userID, Expire: expire}, nil
}

func (b *Backend) CreateSession(_ context.Context, userID, secret string) (*entity.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok, ok := b.tokens[userID]
	if !ok || b.now().After(tok.expire) {
		return nil, repo.ErrInvalidToken
	}
	if tok.code != secret {
		tok.misses++
		if tok.misses >= repo.MaxPasscodeAttempts {
			delete(b.tokens, userID)
		} else {
			b.tokens[userID] = tok
		}
		return nil, repo.ErrInvalidToken
	}
	delete(b.tokens, userID)

	s := &entity.Session{
		ID:     ids.Unique(),
		UserID: userID,
		Secret: ids.Unique() + ids.Unique(),
		Expire: b.now().Add(b.SessionTTL),
	}
	b.sessions[s.Secret] = session{userID: userID, expire: s.Expire}
	b.sessionID[s.Secret] = s.ID
	return s, nil
}

type sessionAccount struct {
	b      *Backend
	secret string
}

func (a *sessionAccount) live() (session, bool) {
	s, ok := a.b.sessions[a.secret]
	if !ok || a.b.now().After(s.expire) {
		return session{}, false
	}
	return s, true
}

func (a *sessionAccount) Get(_ context.Context) (*entity.Account, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()

	s, ok := a.live()
	if !ok {
		return nil, repo.ErrUnauthorized
	}
	acc := a.b.accounts[s.userID]
	return &acc, nil
}

func (a *sessionAccount) DeleteSession(_ context.Context, sessionID string) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()

	s, ok := a.live()
	if !ok {
		return repo.ErrUnauthorized
	}
	if sessionID == repo.CurrentSession || sessionID == a.b.sessionID[a.secret] {
		delete(a.b.sessions, a.secret)
		delete(a.b.sessionID, a.secret)
		return nil
	}
	for secret, id := range a.b.sessionID {
		if id == sessionID && a.b.sessions[secret].userID == s.userID {
			delete(a.b.sessions, secret)
			delete(a.b.sessionID, secret)
			return nil
		}
	}
	return fmt.Errorf("session %s: %w", sessionID, repo.ErrUnauthorized)
}

var (
	_ repo.ClientFactory    = (*Backend)(nil)
	_ repo.DocumentStore    = (*Backend)(nil)
	_ repo.IdentityProvider = (*Backend)(nil)
	_ repo.AccountService   = (*sessionAccount)(nil)
)

// Package selfhosted implements the identity provider on the service's own stack:
// accounts, passcodes and sessions live in Redis, session secrets are signed JWTs,
// and passcodes reach users through the email queue.
package selfhosted

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/ids"
)

// OTPSender delivers an issued passcode to its owner.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string, expire time.Time) error
}

type tokenRecord struct {
	ID     string    `json:"id"`
	Hash   string    `json:"hash"`
	Email  string    `json:"email"`
	Expire time.Time `json:"expire"`
}

// Provider implements repository.ClientFactory; documents go to Docs.
type Provider struct {
	Docs     repo.DocumentStore
	Redis    redis.Cmdable
	JWT      *helpers.JWTManager
	Mailer   OTPSender
	Logger   *logrus.Logger
	TokenTTL time.Duration
}

func NewProvider(docs repo.DocumentStore, rdb redis.Cmdable, jwt *helpers.JWTManager, mailer OTPSender, logger *logrus.Logger, tokenTTL time.Duration) *Provider {
	return &Provider{Docs: docs, Redis: rdb, JWT: jwt, Mailer: mailer, Logger: logger, TokenTTL: tokenTTL}
}

func (p *Provider) Admin(_ context.Context) (*repo.AdminClient, error) {
	return &repo.AdminClient{Databases: p.Docs, Account: p}, nil
}

func (p *Provider) Session(_ context.Context, secret string) (*repo.SessionClient, error) {
	if secret == "" {
		return nil, repo.ErrNoSession
	}
	return &repo.SessionClient{Databases: p.Docs, Account: &sessionAccount{p: p, secret: secret}}, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// resolveAccount returns the account id bound to email, registering userID when the email is new.
// The account hash is rewritten on every call so a mapping left without one heals on the next passcode.
func (p *Provider) resolveAccount(ctx context.Context, userID, email string) (string, error) {
	created, err := p.Redis.SetNX(ctx, helpers.KeyAccountByEmail(email), userID, 0).Result()
	if err != nil {
		return "", err
	}
	uid := userID
	if !created {
		if uid, err = p.Redis.Get(ctx, helpers.KeyAccountByEmail(email)).Result(); err != nil {
			return "", err
		}
	}
	if err := p.writeAccount(ctx, uid, email); err != nil {
		if created {
			_ = p.Redis.Del(ctx, helpers.KeyAccountByEmail(email)).Err()
		}
		return "", err
	}
	return uid, nil
}

func (p *Provider) writeAccount(ctx context.Context, uid, email string) error {
	key := helpers.KeyAccount(uid)
	if err := p.Redis.HSet(ctx, key, "id", uid, "email", email).Err(); err != nil {
		return err
	}
	return p.Redis.HSetNX(ctx, key, "created_at", nowRFC3339()).Err()
}

// recordMiss counts a wrong passcode and burns the token once the limit is reached.
func (p *Provider) recordMiss(ctx context.Context, userID string, expire time.Time) error {
	akey := helpers.KeyEmailTokenAttempts(userID)
	n, err := p.Redis.Incr(ctx, akey).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		_ = p.Redis.ExpireAt(ctx, akey, expire).Err()
	}
	if n >= repo.MaxPasscodeAttempts {
		if p.Logger != nil {
			p.Logger.WithField("user_id", userID).Warn("email token burned after too many attempts")
		}
		return p.Redis.Del(ctx, helpers.KeyEmailToken(userID), akey).Err()
	}
	return nil
}

func (p *Provider) CreateEmailToken(ctx context.Context, userID, email string) (*entity.Token, error) {
	uid, err := p.resolveAccount(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return nil, err
	}
	hash, err := helpers.HashSecret(code)
	if err != nil {
		return nil, err
	}
	rec := tokenRecord{ID: ids.Unique(), Hash: hash, Email: email, Expire: time.Now().Add(p.TokenTTL)}
	key := helpers.KeyEmailToken(uid)
	if err := helpers.RedisSetJSON(ctx, p.Redis, key, rec, p.TokenTTL); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	_ = p.Redis.Del(ctx, helpers.KeyEmailTokenAttempts(uid)).Err()

	if err := p.Mailer.SendOTP(ctx, email, code, rec.Expire); err != nil {
		_ = p.Redis.Del(ctx, key).Err()
		return nil, fmt.Errorf("send otp email: %w", err)
	}
	if p.Logger != nil {
		p.Logger.WithField("user_id", uid).Debug("email token issued")
	}
	return &entity.Token{ID: rec.ID, UserID: uid, Expire: rec.Expire}, nil
}

func (p *Provider) CreateSession(ctx context.Context, userID, secret string) (*entity.Session, error) {
	key := helpers.KeyEmailToken(userID)
	rec, found, err := helpers.RedisGetJSON[tokenRecord](ctx, p.Redis, key)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if !found || time.Now().After(rec.Expire) {
		return nil, repo.ErrInvalidToken
	}
	if !helpers.CompareHashAndSecret(rec.Hash, secret) {
		if err := p.recordMiss(ctx, userID, rec.Expire); err != nil {
			return nil, fmt.Errorf("count attempt: %w", err)
		}
		return nil, repo.ErrInvalidToken
	}
	// Passcodes are single use; losing the race to another request invalidates this one.
	if n, err := p.Redis.Del(ctx, key).Result(); err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	} else if n == 0 {
		return nil, repo.ErrInvalidToken
	}
	_ = p.Redis.Del(ctx, helpers.KeyEmailTokenAttempts(userID)).Err()

	sid := ids.Unique()
	token, exp, err := p.JWT.GenerateSessionToken(userID, sid)
	if err != nil {
		if p.Logger != nil {
			p.Logger.WithError(err).WithField("user_id", userID).Error("generate session token failed")
		}
		return nil, err
	}
	skey := helpers.KeySession(sid)
	pipe := p.Redis.Pipeline()
	pipe.HSet(ctx, skey, map[string]any{
		"user_id":    userID,
		"created_at": nowRFC3339(),
	})
	pipe.ExpireAt(ctx, skey, exp)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &entity.Session{ID: sid, UserID: userID, Secret: token, Expire: exp}, nil
}

type sessionAccount struct {
	p      *Provider
	secret string
}

// claims validates the secret and that its session is still live.
func (a *sessionAccount) claims(ctx context.Context) (*helpers.Claims, error) {
	c, err := a.p.JWT.ParseSessionToken(a.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repo.ErrUnauthorized, err)
	}
	owner, err := a.p.Redis.HGet(ctx, helpers.KeySession(c.SessionID), "user_id").Result()
	if errors.Is(err, redis.Nil) || (err == nil && owner != c.UserID) {
		return nil, repo.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *sessionAccount) Get(ctx context.Context) (*entity.Account, error) {
	c, err := a.claims(ctx)
	if err != nil {
		return nil, err
	}
	data, err := a.p.Redis.HGetAll(ctx, helpers.KeyAccount(c.UserID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, repo.ErrUnauthorized
	}
	return &entity.Account{ID: c.UserID, Email: data["email"], Name: data["name"]}, nil
}

func (a *sessionAccount) DeleteSession(ctx context.Context, sessionID string) error {
	c, err := a.claims(ctx)
	if err != nil {
		return err
	}
	target := sessionID
	if sessionID == repo.CurrentSession {
		target = c.SessionID
	} else {
		owner, err := a.p.Redis.HGet(ctx, helpers.KeySession(target), "user_id").Result()
		if errors.Is(err, redis.Nil) || (err == nil && owner != c.UserID) {
			return fmt.Errorf("session %s: %w", sessionID, repo.ErrUnauthorized)
		}
		if err != nil {
			return err
		}
	}
	return a.p.Redis.Del(ctx, helpers.KeySession(target)).Err()
}

var (
	_ repo.ClientFactory    = (*Provider)(nil)
	_ repo.IdentityProvider = (*Provider)(nil)
	_ repo.AccountService   = (*sessionAccount)(nil)
)

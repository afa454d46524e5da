package appwrite

import (
	"context"
	"fmt"
	"time"

	sdkaccount "github.com/appwrite/sdk-for-go/account"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
)

type account struct {
	srv     *sdkaccount.Account
	timeout time.Duration
}

type tokenBody struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
	Secret string `json:"secret"`
	Expire string `json:"expire"`
}

func (a *account) CreateEmailToken(ctx context.Context, userID, email string) (*entity.Token, error) {
	res, err := call(ctx, a.timeout, func() (decoder, error) {
		return a.srv.CreateEmailToken(userID, email)
	})
	if err != nil {
		return nil, err
	}
	var out tokenBody
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("appwrite: decode token: %w", err)
	}
	return &entity.Token{ID: out.ID, UserID: out.UserID, Expire: parseTime(out.Expire)}, nil
}

func (a *account) CreateSession(ctx context.Context, userID, secret string) (*entity.Session, error) {
	res, err := call(ctx, a.timeout, func() (decoder, error) {
		return a.srv.CreateSession(userID, secret)
	})
	if err != nil {
		return nil, err
	}
	var out tokenBody
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("appwrite: decode session: %w", err)
	}
	return &entity.Session{ID: out.ID, UserID: out.UserID, Secret: out.Secret, Expire: parseTime(out.Expire)}, nil
}

func (a *account) Get(ctx context.Context) (*entity.Account, error) {
	res, err := call(ctx, a.timeout, func() (decoder, error) {
		return a.srv.Get()
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		ID    string `json:"$id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := res.Decode(&out); err != nil {
		return nil, fmt.Errorf("appwrite: decode account: %w", err)
	}
	return &entity.Account{ID: out.ID, Email: out.Email, Name: out.Name}, nil
}

func (a *account) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := call(ctx, a.timeout, func() (any, error) {
		return a.srv.DeleteSession(sessionID)
	})
	return err
}

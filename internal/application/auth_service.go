package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/ids"
)

var (
	// ErrOTPNotSent is returned when the provider accepted the OTP request but reported no account.
	ErrOTPNotSent = errors.New("failed to send an OTP")
)

// MsgUserNotFound is the SignInResult error for an email without a user record.
const MsgUserNotFound = "User not found"

// CallerScope is the request-bound cookie jar and response of the caller.
type CallerScope interface {
	SessionSecret() string
	SetSession(secret string, expire time.Time)
	ClearSession()
	Redirect(location string)
}

// UserIndex mirrors user records into a search index.
type UserIndex interface {
	IndexUser(ctx context.Context, u *entity.User) error
	SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error)
}

type AccountResult struct {
	AccountID string `json:"accountId"`
}

type SessionResult struct {
	SessionID string `json:"sessionId"`
}

// SignInResult carries either the account to verify against or a not-found error.
type SignInResult struct {
	AccountID string `json:"accountId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuthService signs users up and in with emailed one-time passcodes.
type AuthService struct {
	Clients              repo.ClientFactory
	DatabaseID           string
	UsersCollectionID    string
	AvatarPlaceholderURL string
	SignInPath           string
	Index                UserIndex
	Logger               *logrus.Logger
}

func NewAuthService(clients repo.ClientFactory, databaseID, usersCollectionID, avatarURL, signInPath string, index UserIndex, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Clients:              clients,
		DatabaseID:           databaseID,
		UsersCollectionID:    usersCollectionID,
		AvatarPlaceholderURL: avatarURL,
		SignInPath:           signInPath,
		Index:                index,
		Logger:               logger,
	}
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		return helpers.NewDiscardLogger()
	}
	return s.Logger
}

// LookupUserByEmail returns the first user record with the given email, or nil.
func (s *AuthService) LookupUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	admin, err := s.Clients.Admin(ctx)
	if err != nil {
		return nil, err
	}
	list, err := admin.Databases.ListDocuments(ctx, s.DatabaseID, s.UsersCollectionID, repo.Equal(entity.AttrEmail, email))
	if err != nil {
		return nil, err
	}
	if list.Total <= 0 || len(list.Documents) == 0 {
		return nil, nil
	}
	return entity.UserFromDocument(list.Documents[0]), nil
}

// SendEmailOTP asks the provider to email a passcode and returns the account id it belongs to.
func (s *AuthService) SendEmailOTP(ctx context.Context, email string) (string, error) {
	admin, err := s.Clients.Admin(ctx)
	if err != nil {
		return "", err
	}
	token, err := admin.Account.CreateEmailToken(ctx, ids.Unique(), email)
	if err != nil {
		s.log().WithError(err).WithField("email", email).Error("failed to send email OTP")
		return "", err
	}
	return token.UserID, nil
}

// CreateAccount always sends a fresh passcode and stores a user record only for a new email.
func (s *AuthService) CreateAccount(ctx context.Context, fullName, email string) (AccountResult, error) {
	existing, err := s.LookupUserByEmail(ctx, email)
	if err != nil {
		s.log().WithError(err).WithField("email", email).Error("failed to create account")
		return AccountResult{}, err
	}

	accountID, err := s.SendEmailOTP(ctx, email)
	if err != nil {
		return AccountResult{}, err
	}
	if accountID == "" {
		return AccountResult{}, ErrOTPNotSent
	}

	if existing == nil {
		admin, err := s.Clients.Admin(ctx)
		if err != nil {
			return AccountResult{}, err
		}
		u := &entity.User{FullName: fullName, Email: email, AvatarURL: s.AvatarPlaceholderURL, AccountID: accountID}
		doc, err := admin.Databases.CreateDocument(ctx, s.DatabaseID, s.UsersCollectionID, ids.Unique(), u.Fields())
		if err != nil {
			s.log().WithError(err).WithField("email", email).Error("failed to create account")
			return AccountResult{}, err
		}
		s.log().WithField("account_id", accountID).Info("user record created")
		if s.Index != nil {
			if err := s.Index.IndexUser(ctx, entity.UserFromDocument(*doc)); err != nil {
				s.log().WithError(err).WithField("account_id", accountID).Warn("failed to index user")
			}
		}
	}

	return AccountResult{AccountID: accountID}, nil
}

// VerifySecret exchanges a passcode for a session and stores its secret in the caller's cookie.
func (s *AuthService) VerifySecret(ctx context.Context, scope CallerScope, accountID, password string) (SessionResult, error) {
	admin, err := s.Clients.Admin(ctx)
	if err != nil {
		s.log().WithError(err).Error("failed to verify OTP")
		return SessionResult{}, err
	}
	sess, err := admin.Account.CreateSession(ctx, accountID, password)
	if err != nil {
		s.log().WithError(err).WithField("account_id", accountID).Error("failed to verify OTP")
		return SessionResult{}, err
	}
	scope.SetSession(sess.Secret, sess.Expire)
	return SessionResult{SessionID: sess.ID}, nil
}

// GetCurrentUser resolves the caller's session to its user record. Failures yield nil.
func (s *AuthService) GetCurrentUser(ctx context.Context, scope CallerScope) *entity.User {
	client, err := s.Clients.Session(ctx, scope.SessionSecret())
	if err != nil {
		if !errors.Is(err, repo.ErrNoSession) {
			s.log().WithError(err).Warn("open session client failed")
		}
		return nil
	}
	acc, err := client.Account.Get(ctx)
	if err != nil {
		s.log().WithError(err).Warn("get current account failed")
		return nil
	}
	list, err := client.Databases.ListDocuments(ctx, s.DatabaseID, s.UsersCollectionID, repo.Equal(entity.AttrAccountID, acc.ID))
	if err != nil {
		s.log().WithError(err).WithField("account_id", acc.ID).Warn("get current user failed")
		return nil
	}
	if list.Total <= 0 || len(list.Documents) == 0 {
		return nil
	}
	return entity.UserFromDocument(list.Documents[0])
}

// SignOut deletes the current session. The cookie is cleared and the caller redirected
// to the sign-in page whatever the outcome.
func (s *AuthService) SignOut(ctx context.Context, scope CallerScope) error {
	defer func() {
		scope.ClearSession()
		scope.Redirect(s.SignInPath)
	}()

	client, err := s.Clients.Session(ctx, scope.SessionSecret())
	if err != nil {
		s.log().WithError(err).Error("failed to sign out user")
		return err
	}
	if err := client.Account.DeleteSession(ctx, repo.CurrentSession); err != nil {
		s.log().WithError(err).Error("failed to sign out user")
		return err
	}
	return nil
}

// SignIn sends a passcode to a registered email. Unknown emails get a not-found result and no passcode.
func (s *AuthService) SignIn(ctx context.Context, email string) (SignInResult, error) {
	existing, err := s.LookupUserByEmail(ctx, email)
	if err != nil {
		s.log().WithError(err).WithField("email", email).Error("failed to sign in user")
		return SignInResult{}, err
	}
	if existing == nil {
		return SignInResult{Error: MsgUserNotFound}, nil
	}
	if _, err := s.SendEmailOTP(ctx, email); err != nil {
		s.log().WithError(err).WithField("email", email).Error("failed to sign in user")
		return SignInResult{}, err
	}
	return SignInResult{AccountID: existing.AccountID}, nil
}

// SearchUsers queries the user search index; it is empty when no index is configured.
func (s *AuthService) SearchUsers(ctx context.Context, q string, size int) ([]entity.User, error) {
	if s.Index == nil {
		return []entity.User{}, nil
	}
	return s.Index.SearchUsers(ctx, q, size)
}

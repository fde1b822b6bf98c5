package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/waflow/accountd/internal/model"
	appErr "github.com/waflow/accountd/internal/pkg/errors"
	"github.com/waflow/accountd/internal/pkg/password"
	"github.com/waflow/accountd/internal/pkg/timeutil"
)

// tokenTTLSeconds is the lifetime of both verification codes and reset
// tokens.
const tokenTTLSeconds = 3600

const (
	defaultTheme    = "system"
	defaultFontSize = "md"
)

// AccountStore is the durable account record store. Token lookups carry the
// expiry predicate: an expired token never matches regardless of presence.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmailToken(ctx context.Context, code string, now int64) (*model.Account, error)
	GetByResetToken(ctx context.Context, token string, now int64) (*model.Account, error)
	SetEmailToken(ctx context.Context, id, code string, expires, mtime int64) error
	SetResetToken(ctx context.Context, id, token string, expires, mtime int64) error
	MarkEmailVerified(ctx context.Context, id string, mtime int64) error
	UpdatePasswordClearReset(ctx context.Context, id, passwordHash string, mtime int64) error
}

// TokenSigner issues bearer tokens for authenticated accounts.
type TokenSigner interface {
	Sign(accountID, email string) (string, error)
}

type AccountService struct {
	accounts AccountStore
	signer   TokenSigner
	sender   EmailSender
}

func NewAccountService(accounts AccountStore, signer TokenSigner, sender EmailSender) *AccountService {
	return &AccountService{accounts: accounts, signer: signer, sender: sender}
}

// Register creates an unverified account with a fresh verification code and
// dispatches the code. The raw code is returned so the handler can echo it
// when token exposure is enabled.
func (s *AccountService) Register(ctx context.Context, email, plainPassword, name string) (*model.Account, string, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", appErr.WithMessage(appErr.ErrConflict, "User with this email already exists")
	} else if !appErr.IsNotFound(err) {
		return nil, "", err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	code := generateCode()
	now := timeutil.NowUnix()
	account := &model.Account{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              name,
		PasswordHash:      hash,
		EmailVerified:     false,
		EmailToken:        sql.NullString{String: code, Valid: true},
		EmailTokenExpires: sql.NullInt64{Int64: now + tokenTTLSeconds, Valid: true},
		Theme:             defaultTheme,
		FontSize:          defaultFontSize,
		Ctime:             now,
		Mtime:             now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// The unique index on email is the authoritative duplicate check;
		// the lookup above only narrows the common case.
		if appErr.IsConflict(err) {
			return nil, "", appErr.WithMessage(appErr.ErrConflict, "User with this email already exists")
		}
		return nil, "", err
	}
	s.dispatch(ctx, email, "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in 1 hour.", code))
	return account, code, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password share one message; an unverified email keeps its own.
func (s *AccountService) Login(ctx context.Context, email, plainPassword string) (*model.Account, string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.WithMessage(appErr.ErrUnauthorized, "Invalid email or password")
		}
		return nil, "", err
	}
	if err := password.Compare(account.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.WithMessage(appErr.ErrUnauthorized, "Invalid email or password")
	}
	if !account.EmailVerified {
		return nil, "", appErr.WithMessage(appErr.ErrUnauthorized, "Please verify your email before logging in")
	}
	token, err := s.signer.Sign(account.ID, account.Email)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// ForgotPassword issues a reset token for known emails. Unknown emails are
// indistinguishable to the caller: no error, no token generated.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	token := newResetToken()
	now := timeutil.NowUnix()
	if err := s.accounts.SetResetToken(ctx, account.ID, token, now+tokenTTLSeconds, now); err != nil {
		return "", err
	}
	s.dispatch(ctx, email, "Password reset",
		fmt.Sprintf("Your password reset token is %s. It expires in 1 hour.", token))
	return token, nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return appErr.WithMessage(appErr.ErrInvalid, "Passwords do not match")
	}
	account, err := s.accounts.GetByResetToken(ctx, token, timeutil.NowUnix())
	if err != nil {
		if appErr.IsNotFound(err) {
			return appErr.WithMessage(appErr.ErrInvalid, "Invalid or expired reset token")
		}
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePasswordClearReset(ctx, account.ID, hash, timeutil.NowUnix())
}

func (s *AccountService) VerifyEmail(ctx context.Context, code string) (*model.Account, error) {
	account, err := s.accounts.GetByEmailToken(ctx, code, timeutil.NowUnix())
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrInvalid, "Invalid verification code")
		}
		return nil, err
	}
	if account.EmailVerified {
		return nil, appErr.WithMessage(appErr.ErrInvalid, "Email is already verified")
	}
	if err := s.accounts.MarkEmailVerified(ctx, account.ID, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	account.EmailVerified = true
	account.EmailToken = sql.NullString{}
	account.EmailTokenExpires = sql.NullInt64{}
	return account, nil
}

// ResendVerification replaces any pending code for an unverified account.
// Unknown emails succeed with no side effects, mirroring ForgotPassword.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if account.EmailVerified {
		return "", appErr.WithMessage(appErr.ErrInvalid, "Email is already verified")
	}
	code := generateCode()
	now := timeutil.NowUnix()
	if err := s.accounts.SetEmailToken(ctx, account.ID, code, now+tokenTTLSeconds, now); err != nil {
		return "", err
	}
	s.dispatch(ctx, email, "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in 1 hour.", code))
	return code, nil
}

func (s *AccountService) GetCurrentAccount(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, err
	}
	return account, nil
}

// dispatch sends a token/code over the mail channel. Delivery failures do
// not fail the request; the store state is already committed.
func (s *AccountService) dispatch(ctx context.Context, to, subject, body string) {
	if err := s.sender.Send(to, subject, body); err != nil {
		logutil.GetLogger(ctx).Warn("mail dispatch failed",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}

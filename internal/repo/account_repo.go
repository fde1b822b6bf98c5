package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/waflow/accountd/internal/model"
	"github.com/waflow/accountd/internal/pkg/dbutil"
	appErr "github.com/waflow/accountd/internal/pkg/errors"
)

var accountColumns = []string{
	"id", "email", "name", "password_hash", "email_verified",
	"email_token", "email_token_expires", "reset_token", "reset_token_expires",
	"theme", "font_size", "ctime", "mtime",
}

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	data := map[string]interface{}{
		"id":                  account.ID,
		"email":               account.Email,
		"name":                account.Name,
		"password_hash":       account.PasswordHash,
		"email_verified":      account.EmailVerified,
		"email_token":         nullString(account.EmailToken),
		"email_token_expires": nullInt64(account.EmailTokenExpires),
		"reset_token":         nullString(account.ResetToken),
		"reset_token_expires": nullInt64(account.ResetTokenExpires),
		"theme":               account.Theme,
		"font_size":           account.FontSize,
		"ctime":               account.Ctime,
		"mtime":               account.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("accounts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

// GetByEmailToken matches an unexpired verification code. Expiry is
// authoritative: a stale code never matches, even if still stored.
func (r *AccountRepo) GetByEmailToken(ctx context.Context, code string, now int64) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{
		"email_token":           code,
		"email_token_expires >": now,
	})
}

func (r *AccountRepo) GetByResetToken(ctx context.Context, token string, now int64) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{
		"reset_token":           token,
		"reset_token_expires >": now,
	})
}

func (r *AccountRepo) SetEmailToken(ctx context.Context, id, code string, expires, mtime int64) error {
	return r.updateOne(ctx, id, map[string]interface{}{
		"email_token":         code,
		"email_token_expires": expires,
		"mtime":               mtime,
	})
}

func (r *AccountRepo) SetResetToken(ctx context.Context, id, token string, expires, mtime int64) error {
	return r.updateOne(ctx, id, map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
		"mtime":               mtime,
	})
}

// MarkEmailVerified flips the verified flag and clears the code in a single
// write, so a consumed code can never match again.
func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id string, mtime int64) error {
	return r.updateOne(ctx, id, map[string]interface{}{
		"email_verified":      true,
		"email_token":         nil,
		"email_token_expires": nil,
		"mtime":               mtime,
	})
}

// UpdatePasswordClearReset replaces the password hash and clears the reset
// token pair in a single write.
func (r *AccountRepo) UpdatePasswordClearReset(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.updateOne(ctx, id, map[string]interface{}{
		"password_hash":       passwordHash,
		"reset_token":         nil,
		"reset_token_expires": nil,
		"mtime":               mtime,
	})
}

// PurgeExpiredTokens nulls token columns whose expiry is at or before the
// cutoff. Maintenance only: matching queries already exclude expired tokens.
func (r *AccountRepo) PurgeExpiredTokens(ctx context.Context, cutoff int64) (int64, error) {
	var total int64
	for _, stmt := range []string{
		"UPDATE accounts SET email_token = NULL, email_token_expires = NULL WHERE email_token IS NOT NULL AND email_token_expires <= ?",
		"UPDATE accounts SET reset_token = NULL, reset_token_expires = NULL WHERE reset_token IS NOT NULL AND reset_token_expires <= ?",
	} {
		sqlStr, args := dbutil.Finalize(stmt, []interface{}{cutoff})
		result, err := r.db.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return total, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

func (r *AccountRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Account, error) {
	sqlStr, args, err := builder.BuildSelect("accounts", where, accountColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var account model.Account
	if err := rows.Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash, &account.EmailVerified,
		&account.EmailToken, &account.EmailTokenExpires, &account.ResetToken, &account.ResetTokenExpires,
		&account.Theme, &account.FontSize, &account.Ctime, &account.Mtime,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepo) updateOne(ctx context.Context, id string, update map[string]interface{}) error {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildUpdate("accounts", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func nullString(v sql.NullString) interface{} {
	if v.Valid {
		return v.String
	}
	return nil
}

func nullInt64(v sql.NullInt64) interface{} {
	if v.Valid {
		return v.Int64
	}
	return nil
}

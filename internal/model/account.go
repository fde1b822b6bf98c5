package model

import "database/sql"

// Account is one row of the accounts table. Token columns travel in pairs:
// a non-null token always has a non-null expiry, and both are set or
// cleared together.
type Account struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	EmailVerified     bool
	EmailToken        sql.NullString
	EmailTokenExpires sql.NullInt64
	ResetToken        sql.NullString
	ResetTokenExpires sql.NullInt64
	Theme             string
	FontSize          string
	Ctime             int64
	Mtime             int64
}

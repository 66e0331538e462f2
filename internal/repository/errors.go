// Package repository implements the credential store (MySQL) and the
// session cache (Redis) behind the auth service. SQL lookups that feed
// authentication always filter out soft-revoked rows; existence checks used
// by signup pre-validation deliberately do not, so a revoked account still
// reserves its email.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert violates a unique key. The
// storage-layer constraint is the real uniqueness guarantee; pre-checks
// only exist for friendlier error messages.
var ErrDuplicate = errors.New("duplicate entry")

// ErrNoSession is returned by the session store when no refresh token is
// cached for a principal.
var ErrNoSession = errors.New("no active session")

// isDuplicateKey reports whether err is a MySQL 1062 duplicate-key error.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

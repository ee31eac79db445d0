// Package repository holds the persistence layer: the store interfaces the
// services depend on, their MySQL implementations and the Redis OTP store.
// Implementations translate driver errors into the sentinels below so the
// layers above never inspect driver types.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key,
// for example a second identity with the same phone number.
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// mapWriteErr turns a unique key violation into ErrDuplicate.
func mapWriteErr(err error) error {
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

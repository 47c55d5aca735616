// Package repository persists account records. The sentinel values defined
// here let higher layers distinguish failure scenarios without depending on
// database/sql: a lookup miss can mean an authentication failure, a
// forbidden token, or simply an anonymous context, and only the caller
// knows which.
package repository

import "errors"

// ErrUserNotFound is returned by lookups when no row matches.
var ErrUserNotFound = errors.New("user not found")

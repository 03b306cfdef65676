// Package repository defines the persistence layer and the error values
// shared by every store implementation (MySQL here, plus the mongostore and
// memstore subpackages).  Higher layers distinguish failure scenarios with
// errors.Is against these sentinels; any other error means the store itself
// failed.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by user inserts rejected by the unique email
// constraint.
var ErrEmailExists = errors.New("email already exists")

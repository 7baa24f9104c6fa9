// Package repository contains the MySQL data access logic for users and
// movies, separated from the HTTP and service layers.  The sentinel values
// below let higher layers distinguish failure scenarios without inspecting
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup or mutation targets a row that
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user is created with an email that is
// already registered.  Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

package store

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a carrier write loses an optimistic
// concurrency race: the row changed after it was read.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert or update would violate a
// uniqueness constraint checked by the store.
var ErrDuplicate = errors.New("duplicate")

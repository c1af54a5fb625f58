package repository

import "errors"

// ErrNotFound indicates the requested entity does not exist within the
// organization's scope.
var ErrNotFound = errors.New("entity not found")

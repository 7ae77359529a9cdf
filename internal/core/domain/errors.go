package domain

import "errors"

// ErrInvalid is returned by constructors when a value breaks an entity invariant.
var ErrInvalid = errors.New("domain: invalid argument")

// ErrNotFound is returned by repositories when no stored record matches.
var ErrNotFound = errors.New("domain: not found")

// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownView = errors.New("unknown view")
	ErrInvalidSpec = errors.New("invalid report specification")
	ErrNoWorkspace = errors.New("no workspace file")
	ErrRootNotDir  = errors.New("root is not a directory")
)

package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionMismatch means a conditional update matched no row: either the
	// id is unknown or the stored version moved on.
	ErrVersionMismatch = errors.New("version mismatch")
	ErrDuplicateDay    = errors.New("calendar day already exists")
	ErrDuplicateUser   = errors.New("username already taken")
)

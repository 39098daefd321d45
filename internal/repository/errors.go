package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateCode  = errors.New("duplicate session code")
	ErrDuplicateEmail = errors.New("duplicate user email")
)

package repo

import "errors"

var (
	ErrFetch = errors.New("cannot fetch package")
	ErrIndex = errors.New("cannot write package index")
)

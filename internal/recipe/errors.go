package recipe

import "errors"

var (
	ErrLoad    = errors.New("unable to load recipe")
	ErrInvalid = errors.New("invalid recipe")
	ErrVersion = errors.New("invalid version")
)

package prompt

import "errors"

var (
	ErrInvalidQuery = errors.New("invalid query")
)

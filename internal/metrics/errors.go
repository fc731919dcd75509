package metrics

import "errors"

var (
	ErrExport = errors.New("cannot export metrics")
)

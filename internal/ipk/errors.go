package ipk

import "errors"

var (
	ErrWrite         = errors.New("cannot write package archive")
	ErrUnknownScript = errors.New("unknown maintainer script")
	ErrUnsupported   = errors.New("unsupported file type")
)

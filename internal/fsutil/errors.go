package fsutil

import "errors"

var (
	ErrUnsafePath  = errors.New("archive entry escapes destination")
	ErrUnsupported = errors.New("unsupported file type")
)

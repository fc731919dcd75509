package runtime

import "errors"

var (
	ErrRuntime     = errors.New("runtime error")
	ErrUnavailable = errors.New("containerd is not serving")
	ErrImage       = errors.New("cannot obtain image")
)

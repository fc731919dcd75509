package build

import "errors"

var (
	ErrBuild             = errors.New("build failed")
	ErrFetch             = errors.New("cannot fetch source")
	ErrChecksum          = errors.New("invalid checksum")
	ErrUnknownArch       = errors.New("unknown architecture")
	ErrUnknownPackage    = errors.New("unknown package")
	ErrWorkspaceConflict = errors.New("build directory already exists")
	ErrFileSystem        = errors.New("file system operation failed")
	ErrArchive           = errors.New("cannot create archive")
	ErrNoContainers      = errors.New("no container runner configured")
)

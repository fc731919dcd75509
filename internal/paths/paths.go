package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory naming.
	programName = "cruxpkg"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Default permission mode for executable files and maintainer scripts.
	ExecFileMode os.FileMode = 0755

	// Default recipe directory, relative to the working directory.
	DefaultRecipeDir = "package"

	// Default containerd socket address.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and build containers.
	DefaultContainerdNamespace = programName
)

// Directory where recipes are built, one subdirectory per recipe.
//
//	Linux:   $XDG_CACHE_HOME/cruxpkg/work
//	macOS:   ~/Library/Caches/cruxpkg/work
func Work() string {
	return filepath.Join(xdg.CacheHome, programName, "work")
}

// Directory holding built archives and the package index.
//
//	Linux:   $XDG_DATA_HOME/cruxpkg/repo
//	macOS:   ~/Library/Application Support/cruxpkg/repo
func Repo() string {
	return filepath.Join(xdg.DataHome, programName, "repo")
}

// Default environment file consulted before flags are parsed.
//
//	Linux:   $XDG_CONFIG_HOME/cruxpkg/env
//	macOS:   ~/Library/Application Support/cruxpkg/env
func EnvFile() string {
	return filepath.Join(xdg.ConfigHome, programName, "env")
}

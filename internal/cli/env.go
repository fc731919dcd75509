package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/cruciblehq/cruxpkg/internal/paths"
)

// Name of the environment file looked up in the working directory.
const localEnvFile = ".env"

// Loads environment files without overriding variables already set. An
// explicitly requested file must exist; the implicit ones are optional.
func loadEnvFiles(args []string) error {
	explicit := envFileArg(args)
	if explicit == "" {
		explicit = os.Getenv("CRUXPKG_ENV_FILE")
	}
	if explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return fmt.Errorf("cannot load environment file %s: %w", explicit, err)
		}
	}

	for _, file := range []string{localEnvFile, paths.EnvFile()} {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("cannot load environment file %s: %w", file, err)
		}
	}
	return nil
}

// Returns the value of --env-file in args, or "". Scanning stops at "--".
func envFileArg(args []string) string {
	const flag = "--env-file"
	for i, arg := range args {
		switch {
		case arg == "--":
			return ""
		case arg == flag && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, flag+"="):
			return strings.TrimPrefix(arg, flag+"=")
		}
	}
	return ""
}

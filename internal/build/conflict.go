package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/cruciblehq/cruxpkg/internal/prompt"
)

// What to do with a build directory left by a previous build.
type ConflictAction int

const (
	ConflictCancel ConflictAction = iota // Abort the build.
	ConflictRemove                       // Delete the directory and start afresh.
	ConflictKeep                         // Build on top of the existing content.
)

// Returns the lowercase name of the action.
func (a ConflictAction) String() string {
	switch a {
	case ConflictCancel:
		return "cancel"
	case ConflictRemove:
		return "remove"
	case ConflictKeep:
		return "keep"
	default:
		return fmt.Sprintf("ConflictAction(%d)", int(a))
	}
}

// Parses an action name as returned by [ConflictAction.String].
func ParseConflictAction(s string) (ConflictAction, error) {
	switch strings.ToLower(s) {
	case "cancel":
		return ConflictCancel, nil
	case "remove":
		return ConflictRemove, nil
	case "keep":
		return ConflictKeep, nil
	default:
		return 0, fmt.Errorf("unknown conflict action %q", s)
	}
}

// Decides what to do with the existing build directory at path for the
// named recipe.
type ConflictFunc func(path, recipe string) (ConflictAction, error)

// Returns a policy that always takes the given action.
func Always(action ConflictAction) ConflictFunc {
	return func(string, string) (ConflictAction, error) {
		return action, nil
	}
}

// Returns a policy asking the user on out and reading the answer from in.
// The default answer cancels.
func Ask(in io.Reader, out io.Writer) ConflictFunc {
	return func(path, recipe string) (ConflictAction, error) {
		answer, err := prompt.Ask(in, out, prompt.Query{
			Message: fmt.Sprintf("The build directory '%s' for recipe '%s' already exists.\n"+
				"Would you like to [c]ancel, [r]emove that directory, or [k]eep it (not recommended)?", path, recipe),
			Default: "c",
			Options: []string{"c", "r", "k"},
			Aliases: map[string]string{"cancel": "c", "remove": "r", "keep": "k"},
		})
		if err != nil {
			return ConflictCancel, err
		}

		switch answer {
		case "r":
			return ConflictRemove, nil
		case "k":
			return ConflictKeep, nil
		default:
			return ConflictCancel, nil
		}
	}
}

// Package bash assembles and runs the shell scripts declared by recipes.
//
// Scripts receive their inputs as shell variable declarations prepended to
// the script body rather than through the environment, so the same text runs
// unchanged on the host and inside a build container. Variables come from
// several scopes (generic recipe, architecture, package, user overrides); a
// [Scope] stacks them so that later layers override earlier ones.
//
// Running a script yields [Logs], a pull-based stream of output lines. The
// stream is exhausted either normally or with a [ScriptError] carrying the
// exit status, which is only observable once every line has been consumed.
//
// Example usage:
//
//	scope := bash.NewScope(recipeVars, customVars)
//	logs, err := bash.Local{}.Run(ctx, "make -C \"$srcdir\"", scope.Resolve())
//	if err != nil {
//	    return err
//	}
//	for line := range logs.Lines() {
//	    fmt.Println(line)
//	}
//	if err := logs.Err(); err != nil {
//	    return err
//	}
package bash

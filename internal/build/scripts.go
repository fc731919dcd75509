package build

import (
	"fmt"
	"maps"
	"strings"

	"github.com/cruciblehq/cruxpkg/internal/bash"
	"github.com/cruciblehq/cruxpkg/internal/ipk"
	"github.com/cruciblehq/cruxpkg/internal/recipe"
)

// Appended to the hooks that run after the set of installed applications
// changes, for packages that register launcher entries.
const launcherHook = "\nreload-oxide-apps\n"

// Directory, relative to a staged tree, holding launcher entries.
const launcherAppsDir = "opt/usr/share/applications"

// Lifecycle functions extended with the launcher hook.
var launcherHooked = []string{recipe.FuncConfigure, recipe.FuncPostupgrade, recipe.FuncPostremove}

// Returns the lifecycle function bodies used for the maintainer scripts. When
// registersApps is true the launcher hook is appended to the functions that
// run after applications change. The package itself is never modified.
func effectiveFunctions(pkg *recipe.Package, registersApps bool) map[string]string {
	functions := maps.Clone(pkg.Functions)
	if functions == nil {
		functions = make(map[string]string)
	}
	if registersApps {
		for _, name := range launcherHooked {
			functions[name] += launcherHook
		}
	}
	return functions
}

// Returns the text shared by every maintainer script of pkg: the interpreter
// line, strict mode, every variable visible to the package, its helper
// functions and the install library.
func scriptHeader(pkg *recipe.Package, lib string) string {
	return strings.Join([]string{
		"#!/usr/bin/env bash\n" + bash.StrictMode + "\n",
		bash.PutVariables(pkg.Scope().Resolve()),
		bash.PutFunctions(pkg.CustomFunctions),
		lib,
	}, "\n")
}

// Wraps body so that it only runs when the script is invoked for action.
func guard(action, body string) string {
	return fmt.Sprintf("if [[ $1 = %s ]]; then\n    script() {\n%s\n    }\n    script\nfi\n", action, strings.TrimRight(body, "\n"))
}

// Translates lifecycle functions into maintainer scripts.
//
// preinstall and configure each become a script guarded on the install and
// configure actions. The upgrade and remove hooks that run at the same point
// share one script with a guard per action. Scripts whose functions are all
// empty are left out.
func installScripts(header string, functions map[string]string) map[string]string {
	scripts := make(map[string]string)

	single := []struct{ function, script, action string }{
		{recipe.FuncPreinstall, ipk.ScriptPreinst, "install"},
		{recipe.FuncConfigure, ipk.ScriptPostinst, "configure"},
	}
	for _, s := range single {
		if body := functions[s.function]; body != "" {
			scripts[s.script] = header + "\n" + guard(s.action, body)
		}
	}

	merged := []struct {
		script  string
		upgrade string
		remove  string
	}{
		{ipk.ScriptPrerm, recipe.FuncPreupgrade, recipe.FuncPreremove},
		{ipk.ScriptPostrm, recipe.FuncPostupgrade, recipe.FuncPostremove},
	}
	for _, m := range merged {
		var guards []string
		if body := functions[m.upgrade]; body != "" {
			guards = append(guards, guard("upgrade", body))
		}
		if body := functions[m.remove]; body != "" {
			guards = append(guards, guard("remove", body))
		}
		if len(guards) > 0 {
			scripts[m.script] = header + "\n" + strings.Join(guards, "\n")
		}
	}
	return scripts
}

package bash

import (
	"maps"
	"slices"
	"strings"
)

// Options applied to every script before its variables.
const StrictMode = "set -euo pipefail"

// Quotes s as a single shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Renders variables as declarations, sorted by name.
//
//	declare -- pkgname='draft'
//	declare -a installdepends=('a' 'b')
func PutVariables(vars Variables) string {
	var b strings.Builder
	for _, name := range vars.Names() {
		v := vars[name]
		if v.Array {
			b.WriteString("declare -a ")
			b.WriteString(name)
			b.WriteString("=(")
			for i, item := range v.Items {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(Quote(item))
			}
			b.WriteString(")\n")
			continue
		}
		b.WriteString("declare -- ")
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(Quote(v.Str))
		b.WriteByte('\n')
	}
	return b.String()
}

// Renders function definitions, sorted by name.
func PutFunctions(functions map[string]string) string {
	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(functions)) {
		b.WriteString(name)
		b.WriteString("() {\n")
		b.WriteString(strings.TrimRight(functions[name], "\n"))
		b.WriteString("\n}\n")
	}
	return b.String()
}

// Assembles the full text run by the shell: strict mode, the variable
// declarations and the body.
func Script(vars Variables, body string) string {
	var b strings.Builder
	b.WriteString(StrictMode)
	b.WriteByte('\n')
	b.WriteString(PutVariables(vars))
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

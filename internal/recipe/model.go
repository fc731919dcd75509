package recipe

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cruciblehq/cruxpkg/internal/bash"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Checksum value that disables verification of a source file.
	SkipChecksum = "SKIP"

	// Flag disabling the strip step.
	FlagNoStrip = "nostrip"

	// Architecture of packages that run on every device.
	ArchAll = "rmall"
)

// Names of recipe-level lifecycle functions.
const (
	FuncPrepare = "prepare"
	FuncBuild   = "build"
)

// Names of package-level lifecycle functions.
const (
	FuncPackage     = "package"
	FuncPreinstall  = "preinstall"
	FuncConfigure   = "configure"
	FuncPreupgrade  = "preupgrade"
	FuncPostupgrade = "postupgrade"
	FuncPreremove   = "preremove"
	FuncPostremove  = "postremove"
)

// A file required to build a recipe.
type Source struct {
	URL       string // Network URL, or a path relative to the recipe directory.
	Checksum  string // Hex SHA-256, or [SkipChecksum].
	NoExtract bool   // Whether to leave archives packed.
}

// Recipe definition shared by all architectures.
type GenericRecipe struct {
	Name       string             // Directory name of the recipe.
	Path       string             // Directory holding the recipe and its local sources.
	Timestamp  time.Time          // Time of the last change, used for every file timestamp.
	Maintainer string             // Maintainer contact.
	URL        string             // Upstream homepage.
	License    string             // SPDX license expression.
	Sources    []Source           // Files fetched once and shared by all architectures.
	Archs      []string           // Supported architectures, in declaration order.
	Recipes    map[string]*Recipe // Per-architecture recipes, keyed by architecture.
	Variables  bash.Variables     // Variables derived from the generic fields.
}

// Returns the recipe timestamp as a Unix epoch.
func (g *GenericRecipe) Epoch() int64 {
	return g.Timestamp.Unix()
}

// Returns the per-architecture recipe, or nil.
func (g *GenericRecipe) Recipe(arch string) *Recipe {
	return g.Recipes[arch]
}

// A recipe specialized for one architecture.
type Recipe struct {
	Parent          *GenericRecipe      // Owning generic recipe.
	Name            string              // Name of the generic recipe.
	Arch            string              // Target architecture.
	Image           string              // Build image, relative to the configured registry prefix.
	Platform        *ocispec.Platform   // Platform of the build image, nil for the host platform.
	Flags           []string            // Declared flags, such as [FlagNoStrip].
	Functions       map[string]string   // Lifecycle functions: prepare, build.
	Variables       bash.Variables      // Variables derived from the architecture fields.
	CustomVariables bash.Variables      // User-defined variables visible to build scripts.
	Packages        map[string]*Package // Packages built from this recipe.
}

// Reports whether flag is declared.
func (r *Recipe) HasFlag(flag string) bool {
	return slices.Contains(r.Flags, flag)
}

// Returns the package names in sorted order.
func (r *Recipe) PackageNames() []string {
	return slices.Sorted(maps.Keys(r.Packages))
}

// Returns the packages sorted by name.
func (r *Recipe) PackageList() []*Package {
	out := make([]*Package, 0, len(r.Packages))
	for _, name := range r.PackageNames() {
		out = append(out, r.Packages[name])
	}
	return out
}

// Returns the scope visible to prepare and build scripts.
func (r *Recipe) Scope() bash.Scope {
	return bash.NewScope(r.Parent.Variables, r.Variables, r.CustomVariables)
}

// An installable unit built from a recipe.
type Package struct {
	Parent          *Recipe           // Owning recipe.
	Name            string            // Package name.
	Version         Version           // Package version.
	Description     string            // One-line description.
	Section         string            // Archive section.
	Depends         []string          // Runtime dependencies.
	Conflicts       []string          // Packages that cannot be installed alongside.
	Replaces        []string          // Packages superseded by this one.
	Provides        []string          // Virtual packages provided.
	Functions       map[string]string // Lifecycle functions: package and the install hooks.
	CustomFunctions map[string]string // User-defined helper functions for install scripts.
	Variables       bash.Variables    // Variables derived from the package fields.
	CustomVariables bash.Variables    // User-defined variables visible to package scripts.
}

// Returns the body of a lifecycle function, or "" if undeclared.
func (p *Package) Function(name string) string {
	return p.Functions[name]
}

// Returns the scope visible to the package and install scripts, from the
// generic recipe up to the custom variables.
func (p *Package) Scope() bash.Scope {
	return bash.NewScope(p.Parent.Parent.Variables, p.Parent.Variables, p.Variables, p.CustomVariables)
}

// Returns the unique identifier "name_version_arch".
func (p *Package) ID() string {
	return fmt.Sprintf("%s_%s_%s", p.Name, p.Version, p.Parent.Arch)
}

// Returns the archive file name "name_upstream-revision_arch.ipk".
func (p *Package) Filename() string {
	return fmt.Sprintf("%s_%s_%s.ipk", p.Name, p.Version.FileString(), p.Parent.Arch)
}

// Returns the control metadata block, one "Field: value" line per non-empty
// field.
func (p *Package) ControlFields() string {
	g := p.Parent.Parent
	fields := []struct{ key, value string }{
		{"Package", p.Name},
		{"Description", p.Description},
		{"Homepage", g.URL},
		{"Version", p.Version.String()},
		{"Section", p.Section},
		{"Maintainer", g.Maintainer},
		{"License", g.License},
		{"Architecture", p.Parent.Arch},
		{"Depends", strings.Join(p.Depends, ", ")},
		{"Conflicts", strings.Join(p.Conflicts, ", ")},
		{"Replaces", strings.Join(p.Replaces, ", ")},
		{"Provides", strings.Join(p.Provides, ", ")},
	}

	var b strings.Builder
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		b.WriteString(f.key)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteByte('\n')
	}
	return b.String()
}

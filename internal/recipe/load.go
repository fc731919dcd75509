package recipe

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/cruciblehq/cruxpkg/internal/bash"
)

// Name of the definition file inside a recipe directory.
const FileName = "recipe.yaml"

// Accepted timestamp layouts, most precise first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// On-disk recipe definition.
type recipeFile struct {
	Timestamp  string                 `yaml:"timestamp"`
	Maintainer string                 `yaml:"maintainer"`
	URL        string                 `yaml:"url"`
	License    string                 `yaml:"license"`
	Pkgver     string                 `yaml:"pkgver"`
	Archs      []string               `yaml:"archs"`
	Image      string                 `yaml:"image"`
	Platform   string                 `yaml:"platform"`
	Flags      []string               `yaml:"flags"`
	Sources    []sourceFile           `yaml:"sources"`
	Variables  map[string]valueFile   `yaml:"variables"`
	Functions  map[string]string      `yaml:"functions"`
	Prepare    string                 `yaml:"prepare"`
	Build      string                 `yaml:"build"`
	Arch       map[string]archFile    `yaml:"arch"`
	Packages   map[string]packageFile `yaml:"packages"`
}

type sourceFile struct {
	URL       string `yaml:"url"`
	SHA256    string `yaml:"sha256"`
	NoExtract bool   `yaml:"noextract"`
}

// Per-architecture overrides. Empty fields inherit the generic values.
type archFile struct {
	Image     string               `yaml:"image"`
	Platform  string               `yaml:"platform"`
	Flags     []string             `yaml:"flags"`
	Variables map[string]valueFile `yaml:"variables"`
	Prepare   string               `yaml:"prepare"`
	Build     string               `yaml:"build"`
}

type packageFile struct {
	Pkgver         string               `yaml:"pkgver"`
	Pkgdesc        string               `yaml:"pkgdesc"`
	Section        string               `yaml:"section"`
	Installdepends []string             `yaml:"installdepends"`
	Conflicts      []string             `yaml:"conflicts"`
	Replaces       []string             `yaml:"replaces"`
	Provides       []string             `yaml:"provides"`
	Variables      map[string]valueFile `yaml:"variables"`
	Functions      map[string]string    `yaml:"functions"`
	Package        string               `yaml:"package"`
	Preinstall     string               `yaml:"preinstall"`
	Configure      string               `yaml:"configure"`
	Preupgrade     string               `yaml:"preupgrade"`
	Postupgrade    string               `yaml:"postupgrade"`
	Preremove      string               `yaml:"preremove"`
	Postremove     string               `yaml:"postremove"`
}

// A custom variable: a scalar or a sequence of scalars.
type valueFile bash.Value

func (v *valueFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = valueFile(bash.String(node.Value))
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*v = valueFile(bash.Array(items...))
		return nil
	default:
		return fmt.Errorf("line %d: variable must be a string or a list of strings", node.Line)
	}
}

// Loads the recipe in the directory at path.
func Load(path string) (*GenericRecipe, error) {
	f, err := os.Open(filepath.Join(path, FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	g, err := Parse(f, filepath.Base(path), path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLoad, filepath.Base(path), err)
	}
	return g, nil
}

// Loads every recipe below dir. Hidden entries are ignored.
func LoadAll(dir string) (map[string]*GenericRecipe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	out := make(map[string]*GenericRecipe)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		g, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = g
	}
	return out, nil
}

// Parses a recipe definition. Local sources are resolved against path.
func Parse(r io.Reader, name, path string) (*GenericRecipe, error) {
	var file recipeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty definition", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return file.build(name, path)
}

func (f *recipeFile) build(name, path string) (*GenericRecipe, error) {
	timestamp, err := parseTimestamp(f.Timestamp)
	if err != nil {
		return nil, err
	}

	sources, err := f.sources()
	if err != nil {
		return nil, err
	}

	if len(f.Packages) == 0 {
		return nil, fmt.Errorf("%w: no packages declared", ErrInvalid)
	}

	archs := f.Archs
	if len(archs) == 0 {
		archs = []string{ArchAll}
	}
	for arch := range f.Arch {
		if !slices.Contains(archs, arch) {
			return nil, fmt.Errorf("%w: overrides for undeclared architecture %q", ErrInvalid, arch)
		}
	}

	g := &GenericRecipe{
		Name:       name,
		Path:       path,
		Timestamp:  timestamp,
		Maintainer: f.Maintainer,
		URL:        f.URL,
		License:    f.License,
		Sources:    sources,
		Archs:      slices.Clone(archs),
		Recipes:    make(map[string]*Recipe, len(archs)),
	}
	g.Variables = f.genericVariables(g)

	for _, arch := range archs {
		r, err := f.recipe(g, arch)
		if err != nil {
			return nil, err
		}
		g.Recipes[arch] = r
	}
	return g, nil
}

func (f *recipeFile) sources() ([]Source, error) {
	out := make([]Source, 0, len(f.Sources))
	for i, s := range f.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("%w: source %d has no url", ErrInvalid, i+1)
		}
		if err := validateChecksum(s.SHA256); err != nil {
			return nil, fmt.Errorf("%w: source %s: %w", ErrInvalid, s.URL, err)
		}
		out = append(out, Source{URL: s.URL, Checksum: s.SHA256, NoExtract: s.NoExtract})
	}
	return out, nil
}

func (f *recipeFile) genericVariables(g *GenericRecipe) bash.Variables {
	var urls, sums, noextract []string
	for _, s := range g.Sources {
		urls = append(urls, s.URL)
		sums = append(sums, s.Checksum)
		if s.NoExtract {
			noextract = append(noextract, s.URL)
		}
	}
	return bash.Variables{
		"timestamp":  bash.String(g.Timestamp.UTC().Format(time.RFC3339)),
		"maintainer": bash.String(g.Maintainer),
		"url":        bash.String(g.URL),
		"license":    bash.String(g.License),
		"archs":      bash.Array(g.Archs...),
		"source":     bash.Array(urls...),
		"sha256sums": bash.Array(sums...),
		"noextract":  bash.Array(noextract...),
		"pkgnames":   bash.Array(slices.Sorted(maps.Keys(f.Packages))...),
	}
}

func (f *recipeFile) recipe(g *GenericRecipe, arch string) (*Recipe, error) {
	override := f.Arch[arch]

	r := &Recipe{
		Parent:    g,
		Name:      g.Name,
		Arch:      arch,
		Image:     firstNonEmpty(override.Image, f.Image),
		Flags:     slices.Clone(f.Flags),
		Functions: map[string]string{
			FuncPrepare: firstNonEmpty(override.Prepare, f.Prepare),
			FuncBuild:   firstNonEmpty(override.Build, f.Build),
		},
		CustomVariables: mergeValues(f.Variables, override.Variables),
		Packages:        make(map[string]*Package, len(f.Packages)),
	}
	if override.Flags != nil {
		r.Flags = slices.Clone(override.Flags)
	}

	if r.Functions[FuncBuild] != "" && r.Image == "" {
		return nil, fmt.Errorf("%w: architecture %s has a build function but no image", ErrInvalid, arch)
	}

	if p := firstNonEmpty(override.Platform, f.Platform); p != "" {
		platform, err := platforms.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("%w: architecture %s: %w", ErrInvalid, arch, err)
		}
		r.Platform = &platform
	}

	r.Variables = bash.Variables{
		"arch":  bash.String(arch),
		"image": bash.String(r.Image),
		"flags": bash.Array(r.Flags...),
	}

	for name, pf := range f.Packages {
		p, err := f.pkg(r, name, pf)
		if err != nil {
			return nil, err
		}
		r.Packages[name] = p
	}
	return r, nil
}

func (f *recipeFile) pkg(r *Recipe, name string, pf packageFile) (*Package, error) {
	if name == "" || strings.ContainsAny(name, "_/ \t") {
		return nil, fmt.Errorf("%w: bad package name %q", ErrInvalid, name)
	}
	if pf.Pkgdesc == "" {
		return nil, fmt.Errorf("%w: package %s has no pkgdesc", ErrInvalid, name)
	}
	if pf.Package == "" {
		return nil, fmt.Errorf("%w: package %s has no package function", ErrInvalid, name)
	}

	raw := firstNonEmpty(pf.Pkgver, f.Pkgver)
	if raw == "" {
		return nil, fmt.Errorf("%w: package %s has no pkgver", ErrInvalid, name)
	}
	version, err := ParseVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: package %s: %w", ErrInvalid, name, err)
	}

	p := &Package{
		Parent:      r,
		Name:        name,
		Version:     version,
		Description: pf.Pkgdesc,
		Section:     pf.Section,
		Depends:     slices.Clone(pf.Installdepends),
		Conflicts:   slices.Clone(pf.Conflicts),
		Replaces:    slices.Clone(pf.Replaces),
		Provides:    slices.Clone(pf.Provides),
		Functions: map[string]string{
			FuncPackage:     pf.Package,
			FuncPreinstall:  pf.Preinstall,
			FuncConfigure:   pf.Configure,
			FuncPreupgrade:  pf.Preupgrade,
			FuncPostupgrade: pf.Postupgrade,
			FuncPreremove:   pf.Preremove,
			FuncPostremove:  pf.Postremove,
		},
		CustomFunctions: mergeFunctions(f.Functions, pf.Functions),
		CustomVariables: overlay(r.CustomVariables, pf.Variables),
	}

	p.Variables = bash.Variables{
		"pkgname":        bash.String(name),
		"pkgver":         bash.String(version.String()),
		"pkgdesc":        bash.String(pf.Pkgdesc),
		"section":        bash.String(pf.Section),
		"installdepends": bash.Array(p.Depends...),
		"conflicts":      bash.Array(p.Conflicts...),
		"replaces":       bash.Array(p.Replaces...),
		"provides":       bash.Array(p.Provides...),
	}
	return p, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrInvalid)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInvalid, s)
}

// Accepts [SkipChecksum] or a lowercase hex SHA-256.
func validateChecksum(sum string) error {
	if sum == SkipChecksum {
		return nil
	}
	if sum == "" {
		return errors.New("missing sha256 (use SKIP to disable verification)")
	}
	return digest.NewDigestFromEncoded(digest.SHA256, sum).Validate()
}

func mergeValues(base map[string]valueFile, override map[string]valueFile) bash.Variables {
	out := make(bash.Variables, len(base)+len(override))
	for k, v := range base {
		out[k] = bash.Value(v)
	}
	for k, v := range override {
		out[k] = bash.Value(v)
	}
	return out
}

func overlay(base bash.Variables, override map[string]valueFile) bash.Variables {
	out := base.Clone()
	for k, v := range override {
		out[k] = bash.Value(v)
	}
	return out
}

func mergeFunctions(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

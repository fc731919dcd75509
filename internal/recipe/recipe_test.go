package recipe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cruciblehq/cruxpkg/internal/bash"
)

const draftRecipe = `
timestamp: 2021-04-03T12:30Z
maintainer: Jane Doe <jane@example.org>
url: https://example.org/draft
license: MIT
pkgver: 1:0.2.0-3
archs: [rm1, rm2]
image: qt:v2.1
flags: [nostrip]
sources:
  - url: https://example.org/draft-0.2.0.tar.gz
    sha256: 5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03
  - url: draft.conf
    sha256: SKIP
    noextract: true
variables:
  buildflags: -O2
  extra: [a, b]
functions:
  helper: echo helper
prepare: |
  sed -i 's/x/y/' "$srcdir/Makefile"
build: |
  make
arch:
  rm2:
    image: qt-rm2:v2.1
    platform: linux/amd64
    variables:
      buildflags: -O3
packages:
  draft:
    pkgdesc: Launcher for the device
    section: launchers
    installdepends: [xochitl, display]
    package: |
      install -D -m 755 "$srcdir/draft" "$pkgdir/opt/bin/draft"
    configure: |
      systemctl daemon-reload
  draft-extra:
    pkgver: 0.1.0-1
    pkgdesc: Extra launcher entries
    variables:
      extra: [c]
    functions:
      helper: echo overridden
    package: |
      true
`

func parseDraft(t *testing.T) *GenericRecipe {
	t.Helper()
	g, err := Parse(strings.NewReader(draftRecipe), "draft", "/recipes/draft")
	require.NoError(t, err)
	return g
}

func TestParseGeneric(t *testing.T) {
	g := parseDraft(t)

	assert.Equal(t, "draft", g.Name)
	assert.Equal(t, "/recipes/draft", g.Path)
	assert.Equal(t, time.Date(2021, 4, 3, 12, 30, 0, 0, time.UTC), g.Timestamp)
	assert.Equal(t, int64(1617453000), g.Epoch())
	assert.Equal(t, []string{"rm1", "rm2"}, g.Archs)
	require.Len(t, g.Sources, 2)
	assert.True(t, g.Sources[1].NoExtract)
	assert.Equal(t, SkipChecksum, g.Sources[1].Checksum)

	assert.Equal(t, bash.Array("rm1", "rm2"), g.Variables["archs"])
	assert.Equal(t, bash.Array("draft.conf"), g.Variables["noextract"])
	assert.Equal(t, bash.Array("draft", "draft-extra"), g.Variables["pkgnames"])
}

func TestParseArchOverrides(t *testing.T) {
	g := parseDraft(t)

	rm1 := g.Recipe("rm1")
	require.NotNil(t, rm1)
	assert.Same(t, g, rm1.Parent)
	assert.Equal(t, "qt:v2.1", rm1.Image)
	assert.Nil(t, rm1.Platform)
	assert.True(t, rm1.HasFlag(FlagNoStrip))
	assert.Equal(t, "-O2", rm1.CustomVariables["buildflags"].Str)
	assert.Equal(t, "make\n", rm1.Functions[FuncBuild])

	rm2 := g.Recipe("rm2")
	require.NotNil(t, rm2)
	assert.Equal(t, "qt-rm2:v2.1", rm2.Image)
	require.NotNil(t, rm2.Platform)
	assert.Equal(t, "amd64", rm2.Platform.Architecture)
	assert.Equal(t, "-O3", rm2.CustomVariables["buildflags"].Str)

	v, ok := rm2.Scope().Lookup("arch")
	require.True(t, ok)
	assert.Equal(t, "rm2", v.Str)
}

func TestParsePackages(t *testing.T) {
	g := parseDraft(t)
	r := g.Recipe("rm1")

	assert.Equal(t, []string{"draft", "draft-extra"}, r.PackageNames())

	draft := r.Packages["draft"]
	assert.Same(t, r, draft.Parent)
	assert.Equal(t, "1:0.2.0-3", draft.Version.String())
	assert.Equal(t, "draft_1:0.2.0-3_rm1", draft.ID())
	assert.Equal(t, "draft_0.2.0-3_rm1.ipk", draft.Filename())
	assert.Equal(t, "echo helper", draft.CustomFunctions["helper"])
	assert.Equal(t, bash.Array("a", "b"), draft.CustomVariables["extra"])
	assert.Empty(t, draft.Function(FuncPreinstall))

	extra := r.Packages["draft-extra"]
	assert.Equal(t, "draft-extra_0.1.0-1_rm1.ipk", extra.Filename())
	assert.Equal(t, "echo overridden", extra.CustomFunctions["helper"])
	assert.Equal(t, bash.Array("c"), extra.CustomVariables["extra"])
	assert.Equal(t, "-O2", extra.CustomVariables["buildflags"].Str)

	// Overriding a package variable must not leak into the recipe scope.
	assert.Equal(t, bash.Array("a", "b"), r.CustomVariables["extra"])
}

func TestPackageScopePrecedence(t *testing.T) {
	g := parseDraft(t)
	pkg := g.Recipe("rm2").Packages["draft"]

	scope := pkg.Scope()
	assert.Equal(t, 4, scope.Depth())

	v, _ := scope.Lookup("pkgname")
	assert.Equal(t, "draft", v.Str)
	v, _ = scope.Lookup("arch")
	assert.Equal(t, "rm2", v.Str)
	v, _ = scope.Lookup("maintainer")
	assert.Equal(t, "Jane Doe <jane@example.org>", v.Str)
	v, _ = scope.Lookup("buildflags")
	assert.Equal(t, "-O3", v.Str)
}

func TestControlFields(t *testing.T) {
	g := parseDraft(t)

	got := g.Recipe("rm1").Packages["draft"].ControlFields()
	want := "Package: draft\n" +
		"Description: Launcher for the device\n" +
		"Homepage: https://example.org/draft\n" +
		"Version: 1:0.2.0-3\n" +
		"Section: launchers\n" +
		"Maintainer: Jane Doe <jane@example.org>\n" +
		"License: MIT\n" +
		"Architecture: rm1\n" +
		"Depends: xochitl, display\n"
	assert.Equal(t, want, got)
}

func TestFilenameIsStable(t *testing.T) {
	a := parseDraft(t).Recipe("rm2").Packages["draft"].Filename()
	b := parseDraft(t).Recipe("rm2").Packages["draft"].Filename()
	assert.Equal(t, a, b)
}

func TestParseDefaultsToAllArch(t *testing.T) {
	g, err := Parse(strings.NewReader(`
timestamp: 2021-01-01T00:00:00Z
pkgver: 1.0-1
packages:
  fonts:
    pkgdesc: Fonts
    package: "true"
`), "fonts", ".")
	require.NoError(t, err)
	assert.Equal(t, []string{ArchAll}, g.Archs)
	assert.Equal(t, "fonts_1.0-1_rmall.ipk", g.Recipe(ArchAll).Packages["fonts"].Filename())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"unknown key", "timestamp: 2021-01-01T00:00:00Z\nbogus: 1\n"},
		{"missing timestamp", "pkgver: 1.0-1\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"bad timestamp", "timestamp: yesterday\npkgver: 1.0-1\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"no packages", "timestamp: 2021-01-01T00:00:00Z\n"},
		{"bad checksum", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\nsources:\n  - url: a\n    sha256: nothex\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"missing checksum", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\nsources:\n  - url: a\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"missing pkgdesc", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\npackages:\n  a:\n    package: 'true'\n"},
		{"missing package function", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\npackages:\n  a:\n    pkgdesc: A\n"},
		{"bad version", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"build without image", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\nbuild: make\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"undeclared arch override", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\narchs: [rm1]\narch:\n  rm2:\n    image: x\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
		{"bad package name", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\npackages:\n  a_b:\n    pkgdesc: A\n    package: 'true'\n"},
		{"bad variable", "timestamp: 2021-01-01T00:00:00Z\npkgver: 1.0-1\nvariables:\n  x: {a: b}\npackages:\n  a:\n    pkgdesc: A\n    package: 'true'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body), "x", ".")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one", "two"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, FileName), []byte(`
timestamp: 2021-01-01T00:00:00Z
pkgver: 1.0-1
packages:
  `+name+`:
    pkgdesc: test
    package: "true"
`), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))

	all, err := LoadAll(dir)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, filepath.Join(dir, "one"), all["one"].Path)
}

func TestLoadMalformedAborts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken", FileName), []byte("timestamp: [\n"), 0644))

	_, err := LoadAll(dir)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nothing"))
	assert.ErrorIs(t, err, ErrLoad)
}

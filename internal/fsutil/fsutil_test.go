package fsutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello")
	writeFile(t, path, "hello\n", 0644)

	sum, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", sum)

	d, err := FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+sum, d.String())
}

func TestListTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "c"), "", 0644)
	writeFile(t, filepath.Join(root, "a"), "", 0644)

	paths, err := ListTree(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "b", "c"),
	}, paths)
}

func TestIsEmptyDir(t *testing.T) {
	root := t.TempDir()

	empty, err := IsEmptyDir(root)
	require.NoError(t, err)
	assert.True(t, empty)

	empty, err = IsEmptyDir(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.True(t, empty)

	writeFile(t, filepath.Join(root, "x"), "", 0644)
	empty, err = IsEmptyDir(root)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestPinTimes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "file"), "x", 0644)
	require.NoError(t, os.Symlink("dir/file", filepath.Join(root, "link")))

	epoch := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, PinTimes(root, epoch))

	for _, p := range []string{root, filepath.Join(root, "dir"), filepath.Join(root, "dir", "file"), filepath.Join(root, "link")} {
		info, err := os.Lstat(p)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(epoch), "%s has mtime %s", p, info.ModTime())
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bin", "tool"), "#!/bin/sh\n", 0755)
	writeFile(t, filepath.Join(src, "README"), "readme", 0644)
	require.NoError(t, os.Symlink("README", filepath.Join(src, "LINK")))

	mtime := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, PinTimes(src, mtime))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyTree(src, dst))

	info, err := os.Stat(filepath.Join(dst, "bin", "tool"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))

	link, err := os.Readlink(filepath.Join(dst, "LINK"))
	require.NoError(t, err)
	assert.Equal(t, "README", link)

	// The copy is independent of the original.
	writeFile(t, filepath.Join(dst, "README"), "changed", 0644)
	data, err := os.ReadFile(filepath.Join(src, "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
}

func TestCopyTreeRequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "", 0644)
	assert.Error(t, CopyTree(file, filepath.Join(t.TempDir(), "out")))
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"src.tar.gz":   FormatTarGzip,
		"SRC.TGZ":      FormatTarGzip,
		"src.tar.bz2":  FormatTarBzip2,
		"src.tar.xz":   FormatTarXz,
		"src.tar.zst":  FormatTarZstd,
		"src.tar":      FormatTar,
		"src.zip":      FormatZip,
		"install.sh":   FormatNone,
		"data.gz":      FormatNone,
		"archive.tar.": FormatNone,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, DetectFormat(name))
		})
	}
}

type tarEntry struct {
	name, body, link string
	dir              bool
}

func writeTarGz(t *testing.T, path string, entries []tarEntry) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		switch {
		case e.dir:
			hdr.Typeflag, hdr.Mode, hdr.Size = tar.TypeDir, 0755, 0
		case e.link != "":
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.link, 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestAutoExtractStripsSingleRoot(t *testing.T) {
	dest := t.TempDir()
	archive := filepath.Join(dest, "app-1.0.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "app-1.0/", dir: true},
		{name: "app-1.0/Makefile", body: "all:\n"},
		{name: "app-1.0/src/main.c", body: "int main(){}\n"},
		{name: "app-1.0/latest", link: "Makefile"},
	})

	ok, err := AutoExtract(archive, dest)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dest, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "all:\n", string(data))
	assert.FileExists(t, filepath.Join(dest, "src", "main.c"))

	link, err := os.Readlink(filepath.Join(dest, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "Makefile", link)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".extract-")
	}
}

func TestAutoExtractKeepsMultipleRoots(t *testing.T) {
	dest := t.TempDir()
	archive := filepath.Join(dest, "assets.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "one.txt", body: "1"},
		{name: "two/three.txt", body: "3"},
	})

	ok, err := AutoExtract(archive, dest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dest, "one.txt"))
	assert.FileExists(t, filepath.Join(dest, "two", "three.txt"))
}

func TestAutoExtractRejectsTraversal(t *testing.T) {
	dest := t.TempDir()
	archive := filepath.Join(dest, "evil.tar.gz")
	writeTarGz(t, archive, []tarEntry{{name: "../escape", body: "x"}})

	_, err := AutoExtract(archive, dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape"))
}

func TestAutoExtractZip(t *testing.T) {
	dest := t.TempDir()
	archive := filepath.Join(dest, "fonts.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("fonts/a.ttf")
	require.NoError(t, err)
	_, err = w.Write([]byte("font"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0644))

	ok, err := AutoExtract(archive, dest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dest, "a.ttf"))
}

func TestAutoExtractIgnoresPlainFiles(t *testing.T) {
	dest := t.TempDir()
	file := filepath.Join(dest, "install.sh")
	writeFile(t, file, "echo", 0755)

	ok, err := AutoExtract(file, dest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutoExtractRejectsWritesThroughSymlink(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(outside, 0755))
	dest := filepath.Join(base, "dest")
	require.NoError(t, os.MkdirAll(dest, 0755))

	archive := filepath.Join(base, "evil.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "link", link: outside},
		{name: "link/pwned", body: "x"},
	})

	_, err := AutoExtract(archive, dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(outside, "pwned"))
}

func TestAutoExtractReplacesSymlinkedFile(t *testing.T) {
	base := t.TempDir()
	victim := filepath.Join(base, "victim")
	writeFile(t, victim, "original", 0644)
	dest := filepath.Join(base, "dest")
	require.NoError(t, os.MkdirAll(dest, 0755))

	archive := filepath.Join(base, "swap.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "data", link: victim},
		{name: "data", body: "replaced"},
		{name: "other", body: "o"},
	})

	ok, err := AutoExtract(archive, dest)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(victim)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "data"))
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))
}

func TestAutoExtractMergesIntoExistingTree(t *testing.T) {
	dest := t.TempDir()
	archive := filepath.Join(dest, "pkg-1.0.tar.gz")
	writeTarGz(t, archive, []tarEntry{
		{name: "pkg-1.0/src/main.c", body: "int main(){}\n"},
		{name: "pkg-1.0/README", body: "readme"},
	})
	writeFile(t, filepath.Join(dest, "src", "local.h"), "#pragma once\n", 0644)

	for range 2 {
		ok, err := AutoExtract(archive, dest)
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.FileExists(t, filepath.Join(dest, "src", "main.c"))
	assert.FileExists(t, filepath.Join(dest, "src", "local.h"))
	data, err := os.ReadFile(filepath.Join(dest, "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
}

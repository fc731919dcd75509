package ipk

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var testEpoch = time.Date(2021, 4, 3, 12, 30, 0, 0, time.UTC)

type entry struct {
	hdr  *tar.Header
	body []byte
}

// Decodes a gzip-compressed tar into its entries, in archive order.
func readTarGz(t *testing.T, data []byte) ([]entry, time.Time) {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	var out []entry
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out = append(out, entry{hdr, body})
	}
	return out, gz.ModTime
}

func names(entries []entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.hdr.Name)
	}
	return out
}

func member(t *testing.T, entries []entry, name string) entry {
	t.Helper()
	for _, e := range entries {
		if e.hdr.Name == name {
			return e
		}
	}
	t.Fatalf("member %s not found in %v", name, names(entries))
	return entry{}
}

func stageTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "opt", "bin"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "opt", "etc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "opt", "bin", "app"), []byte("#!/bin/sh\necho app\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "opt", "etc", "app.conf"), []byte("key=value\n"), 0644))
	require.NoError(t, os.Symlink("../bin/app", filepath.Join(dir, "opt", "etc", "app-link")))
	return dir
}

func write(t *testing.T, dataDir string, scripts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testEpoch, dataDir, "Package: app\n", scripts))
	return buf.Bytes()
}

func TestWriteLayout(t *testing.T) {
	data := write(t, stageTree(t), map[string]string{
		ScriptPostinst: "#!/usr/bin/env bash\necho configured\n",
		ScriptPrerm:    "",
	})

	outer, mtime := readTarGz(t, data)
	assert.Equal(t, testEpoch.Unix(), mtime.Unix())
	assert.Equal(t, []string{"./debian-binary", "./control.tar.gz", "./data.tar.gz"}, names(outer))
	assert.Equal(t, formatVersion, string(member(t, outer, "./debian-binary").body))

	control, _ := readTarGz(t, member(t, outer, "./control.tar.gz").body)
	assert.Equal(t, []string{"./", "./control", "./postinst"}, names(control))
	assert.Equal(t, "Package: app\n", string(member(t, control, "./control").body))
	postinst := member(t, control, "./postinst")
	assert.Equal(t, int64(0755), postinst.hdr.Mode)
	assert.Equal(t, "#!/usr/bin/env bash\necho configured\n", string(postinst.body))

	files, _ := readTarGz(t, member(t, outer, "./data.tar.gz").body)
	assert.Equal(t, []string{
		"./",
		"./opt/",
		"./opt/bin/",
		"./opt/bin/app",
		"./opt/etc/",
		"./opt/etc/app-link",
		"./opt/etc/app.conf",
	}, names(files))

	for _, e := range files {
		assert.Equal(t, 0, e.hdr.Uid, e.hdr.Name)
		assert.Equal(t, 0, e.hdr.Gid, e.hdr.Name)
		assert.Equal(t, "root", e.hdr.Uname, e.hdr.Name)
		assert.True(t, e.hdr.ModTime.Equal(testEpoch), e.hdr.Name)
	}

	app := member(t, files, "./opt/bin/app")
	assert.Equal(t, int64(0755), app.hdr.Mode)
	assert.Equal(t, "#!/bin/sh\necho app\n", string(app.body))

	link := member(t, files, "./opt/etc/app-link")
	assert.Equal(t, byte(tar.TypeSymlink), link.hdr.Typeflag)
	assert.Equal(t, "../bin/app", link.hdr.Linkname)
}

func TestWriteIsDeterministic(t *testing.T) {
	scripts := map[string]string{
		ScriptPreinst:  "echo pre\n",
		ScriptPostinst: "echo post\n",
		ScriptPostrm:   "echo gone\n",
	}

	dir := stageTree(t)
	first := write(t, dir, scripts)

	// Touch the tree; only the epoch may end up in the archive.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "opt", "bin", "app"), later, later))

	second := write(t, dir, scripts)
	assert.Equal(t, first, second)

	third := write(t, stageTree(t), scripts)
	assert.Equal(t, first, third)
}

func TestWriteMissingDataDir(t *testing.T) {
	data := write(t, filepath.Join(t.TempDir(), "absent"), nil)

	outer, _ := readTarGz(t, data)
	files, _ := readTarGz(t, member(t, outer, "./data.tar.gz").body)
	assert.Equal(t, []string{"./"}, names(files))

	control, _ := readTarGz(t, member(t, outer, "./control.tar.gz").body)
	assert.Equal(t, []string{"./", "./control"}, names(control))
}

func TestWriteUnknownScript(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, testEpoch, t.TempDir(), "Package: app\n", map[string]string{"install": "true"})
	assert.ErrorIs(t, err, ErrUnknownScript)
	assert.Zero(t, buf.Len())
}

func TestWriteUnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok"), nil, 0644))
	if err := unix.Mkfifo(filepath.Join(dir, "pipe"), 0644); err != nil {
		t.Skipf("cannot create fifo: %v", err)
	}

	var buf bytes.Buffer
	err := Write(&buf, testEpoch, dir, "Package: app\n", nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, ErrWrite)
}

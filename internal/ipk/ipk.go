package ipk

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Names of the maintainer scripts an archive may carry.
const (
	ScriptPreinst  = "preinst"
	ScriptPostinst = "postinst"
	ScriptPrerm    = "prerm"
	ScriptPostrm   = "postrm"
)

const (

	// Content of the debian-binary member.
	formatVersion = "2.0\n"

	// Name of the control file inside control.tar.gz.
	controlName = "control"
)

// Maintainer scripts in the order they are stored.
var scriptNames = []string{ScriptPreinst, ScriptPostinst, ScriptPrerm, ScriptPostrm}

// Writes an ipk archive to w.
//
// The data member holds the tree rooted at dataDir; a missing dataDir yields
// an archive without files. The control member holds the control text and
// each non-empty script, keyed by one of the Script* names. Every timestamp
// is set to epoch.
func Write(w io.Writer, epoch time.Time, dataDir, control string, scripts map[string]string) error {
	epoch = time.Unix(epoch.Unix(), 0)

	for name := range scripts {
		if !slices.Contains(scriptNames, name) {
			return fmt.Errorf("%w: %q", ErrUnknownScript, name)
		}
	}

	var controlTar, dataTar bytes.Buffer
	if err := writeControl(&controlTar, epoch, control, scripts); err != nil {
		return fmt.Errorf("%w: control: %w", ErrWrite, err)
	}
	if err := writeData(&dataTar, epoch, dataDir); err != nil {
		return fmt.Errorf("%w: data: %w", ErrWrite, err)
	}

	err := compressed(w, epoch, func(tw *tar.Writer) error {
		if err := addFile(tw, epoch, "./debian-binary", 0644, []byte(formatVersion)); err != nil {
			return err
		}
		if err := addFile(tw, epoch, "./control.tar.gz", 0644, controlTar.Bytes()); err != nil {
			return err
		}
		return addFile(tw, epoch, "./data.tar.gz", 0644, dataTar.Bytes())
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func writeControl(w io.Writer, epoch time.Time, control string, scripts map[string]string) error {
	return compressed(w, epoch, func(tw *tar.Writer) error {
		if err := addDir(tw, epoch, "./", 0755); err != nil {
			return err
		}
		if err := addFile(tw, epoch, "./"+controlName, 0644, []byte(control)); err != nil {
			return err
		}
		for _, name := range scriptNames {
			body := scripts[name]
			if body == "" {
				continue
			}
			if err := addFile(tw, epoch, "./"+name, 0755, []byte(body)); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeData(w io.Writer, epoch time.Time, root string) error {
	return compressed(w, epoch, func(tw *tar.Writer) error {
		if err := addDir(tw, epoch, "./", 0755); err != nil {
			return err
		}

		if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return addEntry(tw, epoch, path, "./"+filepath.ToSlash(rel), d)
		})
	})
}

// Runs fn against a tar writer whose output is gzip-compressed into w with a
// header stamped at epoch.
func compressed(w io.Writer, epoch time.Time, fn func(*tar.Writer) error) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	gz.ModTime = epoch

	tw := tar.NewWriter(gz)
	if err := fn(tw); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// Writes one entry of the staged tree.
func addEntry(tw *tar.Writer, epoch time.Time, hostPath, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	mode := info.Mode()

	switch {
	case mode.IsDir():
		return addDir(tw, epoch, name+"/", tarMode(mode))

	case mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(hostPath)
		if err != nil {
			return err
		}
		return tw.WriteHeader(header(epoch, &tar.Header{
			Typeflag: tar.TypeSymlink,
			Name:     name,
			Linkname: target,
			Mode:     0777,
		}))

	case mode.IsRegular():
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()

		err = tw.WriteHeader(header(epoch, &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     tarMode(mode),
			Size:     info.Size(),
		}))
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		return err

	default:
		return fmt.Errorf("%w: %s (%s)", ErrUnsupported, name, mode.Type())
	}
}

func addDir(tw *tar.Writer, epoch time.Time, name string, perm int64) error {
	return tw.WriteHeader(header(epoch, &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     name,
		Mode:     perm,
	}))
}

func addFile(tw *tar.Writer, epoch time.Time, name string, perm int64, content []byte) error {
	err := tw.WriteHeader(header(epoch, &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     perm,
		Size:     int64(len(content)),
	}))
	if err != nil {
		return err
	}
	_, err = tw.Write(content)
	return err
}

// Stamps hdr with the fields shared by every entry: root ownership and the
// epoch as modification time.
func header(epoch time.Time, hdr *tar.Header) *tar.Header {
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = "root"
	hdr.Gname = "root"
	hdr.ModTime = epoch
	hdr.Format = tar.FormatGNU
	return hdr
}

// Converts file mode bits to the tar representation, keeping the special
// bits that installers honor.
func tarMode(mode fs.FileMode) int64 {
	m := int64(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		m |= 04000
	}
	if mode&fs.ModeSetgid != 0 {
		m |= 02000
	}
	if mode&fs.ModeSticky != 0 {
		m |= 01000
	}
	return m
}

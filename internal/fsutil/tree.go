package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// Returns every path below root, excluding root itself, in lexical order.
func ListTree(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// Reports whether dir contains no entries. A missing directory is empty.
func IsEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// Sets the access and modification times of root and everything below it.
// Symbolic links are updated themselves, not their targets.
func PinTimes(root string, t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	times := []unix.Timeval{tv, tv}

	// Children first so that directory times are not bumped afterwards.
	paths, err := ListTree(root)
	if err != nil {
		return err
	}
	paths = append(paths, root)

	for i := len(paths) - 1; i >= 0; i-- {
		if err := unix.Lutimes(paths[i], times); err != nil {
			return &os.PathError{Op: "lutimes", Path: paths[i], Err: err}
		}
	}
	return nil
}

// Sets the access and modification times of a single file.
func PinFileTime(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}

// Copies the tree at src to dst, which must not exist.
//
// Regular files, directories and symbolic links are copied with their
// permission bits and modification times. Other file types are rejected.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", src)
	}

	type dirTime struct {
		path string
		mod  time.Time
	}
	var dirs []dirTime

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch mode := info.Mode(); {
		case mode.IsDir():
			if err := os.Mkdir(target, mode.Perm()); err != nil {
				return err
			}
			dirs = append(dirs, dirTime{target, info.ModTime()})
			return nil

		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)

		case mode.IsRegular():
			if err := copyFile(path, target, mode.Perm()); err != nil {
				return err
			}
			return os.Chtimes(target, info.ModTime(), info.ModTime())

		default:
			return fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
	})
	if err != nil {
		return err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chtimes(dirs[i].path, dirs[i].mod, dirs[i].mod); err != nil {
			return err
		}
	}
	return nil
}

// Copies a single regular file, creating or truncating dst.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, perm)
}

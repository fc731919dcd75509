package recipe

import (
	"fmt"
	"strconv"
	"strings"
)

// Package version in the form "[epoch:]upstream-revision".
type Version struct {
	Epoch    int
	Upstream string
	Revision string
}

// Parses a version string. The revision is mandatory.
func ParseVersion(s string) (Version, error) {
	var v Version
	rest := strings.TrimSpace(s)

	if head, tail, ok := strings.Cut(rest, ":"); ok {
		epoch, err := strconv.Atoi(head)
		if err != nil || epoch < 0 {
			return Version{}, fmt.Errorf("%w: bad epoch in %q", ErrVersion, s)
		}
		v.Epoch = epoch
		rest = tail
	}

	i := strings.LastIndexByte(rest, '-')
	if i <= 0 || i == len(rest)-1 {
		return Version{}, fmt.Errorf("%w: %q has no upstream-revision form", ErrVersion, s)
	}
	v.Upstream = rest[:i]
	v.Revision = rest[i+1:]

	if !validUpstream(v.Upstream) {
		return Version{}, fmt.Errorf("%w: bad upstream version %q", ErrVersion, v.Upstream)
	}
	if !validRevision(v.Revision) {
		return Version{}, fmt.Errorf("%w: bad revision %q", ErrVersion, v.Revision)
	}
	return v, nil
}

// Returns the full version, including a non-zero epoch.
func (v Version) String() string {
	if v.Epoch > 0 {
		return fmt.Sprintf("%d:%s-%s", v.Epoch, v.Upstream, v.Revision)
	}
	return v.Upstream + "-" + v.Revision
}

// Returns the version without its epoch, as used in file names.
func (v Version) FileString() string {
	return v.Upstream + "-" + v.Revision
}

func validUpstream(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	for _, r := range s {
		if !isAlnum(r) && !strings.ContainsRune(".+~-", r) {
			return false
		}
	}
	return true
}

func validRevision(s string) bool {
	for _, r := range s {
		if !isAlnum(r) && !strings.ContainsRune(".+~", r) {
			return false
		}
	}
	return s != ""
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

package sandbox

import (
	"errors"
	"os"
	"strconv"

	"github.com/keaganluttrell/cape/internal/digest"
)

// Sentinel errors dispatch maps onto response codes (spec §6.3).
var (
	ErrNotFile     = errors.New("sandbox: path is not a regular file")
	ErrNotDir      = errors.New("sandbox: path is not a directory")
	ErrDirNotEmpty = errors.New("sandbox: directory is not empty")
	ErrDirExists   = errors.New("sandbox: directory already exists")
	ErrFileExists  = errors.New("sandbox: file already exists")
	ErrWrongType   = errors.New("sandbox: path is neither a regular file nor a directory")
)

// reservedNames are the credential-store files that must never be exposed
// to ListDir (spec §4.1, §6.5).
var reservedNames = map[string]bool{
	storeDirName:     true,
	storeDBFile:      true,
	storeSidecarFile: true,
}

// WriteAllExclusive truncate-writes data to a brand-new file at vp. It uses
// an exclusive create so PUT_REMOTE_FILE's existence check and write happen
// as one atomic syscall rather than the source's check-then-write TOCTOU
// (spec §9 Open Question on PUT atomicity — resolved in DESIGN.md).
func (s *Sandbox) WriteAllExclusive(vp VerifiedPath, data []byte) error {
	f, err := os.OpenFile(vp.abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrFileExists
		}
		return err
	}
	defer f.Close()

	n, err := f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return errors.New("sandbox: short write")
	}
	return nil
}

// Mkdir creates a new directory at vp, failing with ErrDirExists if one is
// already there (spec §4.4: MAKE_REMOTE_DIRECTORY).
func (s *Sandbox) Mkdir(vp VerifiedPath) error {
	if err := os.Mkdir(vp.abs, 0o755); err != nil {
		if os.IsExist(err) {
			return ErrDirExists
		}
		return err
	}
	return nil
}

// Delete removes the object at vp (spec §4.1: delete). A regular file is
// unlinked outright; a directory is removed only if it has no entries
// beyond "." and ".." (i.e. it is empty); anything else is rejected.
func (s *Sandbox) Delete(vp VerifiedPath) error {
	info, err := os.Lstat(vp.abs)
	if err != nil {
		return err
	}

	switch {
	case info.Mode().IsRegular():
		return os.Remove(vp.abs)

	case info.IsDir():
		entries, err := os.ReadDir(vp.abs)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return ErrDirNotEmpty
		}
		return os.Remove(vp.abs)

	default:
		return ErrWrongType
	}
}

// DirEntry describes one child in a ListDir result.
type DirEntry struct {
	IsDir bool
	Size  int64
	Name  string
}

// ListDir enumerates the directory at vp and returns the aggregate listing
// as a hashed text artifact, one line per child formatted
// "[F]:<size>:<name>\n" / "[D]:<size>:<name>\n" (spec §4.1). Reserved
// credential-store entries are never included.
func (s *Sandbox) ListDir(vp VerifiedPath) (*digest.Digest, []byte, error) {
	info, err := os.Lstat(vp.abs)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, ErrNotDir
	}

	entries, err := os.ReadDir(vp.abs)
	if err != nil {
		return nil, nil, err
	}

	var buf []byte
	for _, e := range entries {
		if reservedNames[e.Name()] {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		tag := "F"
		if fi.IsDir() {
			tag = "D"
		}
		buf = append(buf, '[')
		buf = append(buf, tag...)
		buf = append(buf, "]:"...)
		buf = append(buf, strconv.FormatInt(fi.Size(), 10)...)
		buf = append(buf, ':')
		buf = append(buf, fi.Name()...)
		buf = append(buf, '\n')
	}

	d := digest.Sum(buf)
	return &d, buf, nil
}

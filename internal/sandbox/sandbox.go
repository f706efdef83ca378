// Package sandbox resolves untrusted client paths against a server-rooted
// home directory and is the only code allowed to construct a VerifiedPath.
// All file I/O in the service flows through the handles this package mints,
// the way vfs.LocalBackend gated every 9P file op through a single toLocal
// translation in the teacher repo — generalized here with
// filepath-securejoin so that symlinks and ".." segments can never walk a
// VerifiedPath outside the home root (spec §4.1, §8 invariants 1-2).
package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/keaganluttrell/cape/internal/digest"
)

// ErrEscapesHome is returned (wrapped) whenever a client path cannot be
// resolved to a location under the home directory.
var ErrEscapesHome = errors.New("sandbox: path escapes home directory")

// Reserved store file names (spec §6.5): never exposed by ListDir, and the
// only names the credential store is allowed to touch under home.
const (
	storeDirName     = ".cape"
	storeDBFile      = ".cape.db"
	storeSidecarFile = ".cape.hash"
)

// StoreDirName is the credential store's directory name under the home
// root, exported so internal/credentials can join onto it without
// duplicating the literal.
const StoreDirName = storeDirName

// StoreDBFile is the credential database file name within StoreDirName.
const StoreDBFile = storeDBFile

// StoreSidecarFile is the credential database sidecar file name within
// StoreDirName.
const StoreSidecarFile = storeSidecarFile

// VerifiedPath is an opaque handle for an absolute path that is guaranteed
// to be a prefix-extension of the home directory's absolute path. The only
// way to obtain one is through Sandbox.ResolveExisting/ResolvePotential.
type VerifiedPath struct {
	abs string
}

// String returns the absolute path. Exposed for logging only — callers
// should never reconstruct a VerifiedPath from a string.
func (v VerifiedPath) String() string { return v.abs }

// Sandbox roots all path resolution and file I/O at home.
type Sandbox struct {
	home string // canonical absolute path, no trailing separator
}

// New resolves home to its canonical absolute form and returns a Sandbox
// rooted there. home must already exist and be a directory.
func New(home string) (*Sandbox, error) {
	abs, err := filepath.Abs(home)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("sandbox: home is not a directory")
	}
	return &Sandbox{home: canon}, nil
}

// Home returns the sandbox's own root as a VerifiedPath.
func (s *Sandbox) Home() VerifiedPath {
	return VerifiedPath{abs: s.home}
}

// ResolveExisting implements spec §4.1's resolve-existing algorithm: child
// is joined onto home, symlinks are resolved, and the result must already
// exist and lie under home.
func (s *Sandbox) ResolveExisting(child string) (VerifiedPath, error) {
	joined, err := securejoin.SecureJoin(s.home, child)
	if err != nil {
		return VerifiedPath{}, errEscape(err)
	}
	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return VerifiedPath{}, errEscape(err)
	}
	if !underHome(s.home, canon) {
		return VerifiedPath{}, ErrEscapesHome
	}
	if _, err := os.Lstat(canon); err != nil {
		return VerifiedPath{}, errEscape(err)
	}
	return VerifiedPath{abs: canon}, nil
}

// ResolvePotential implements spec §4.1's resolve-potential algorithm: the
// parent of child must resolve-existing successfully; the leaf itself may
// be absent. An empty leaf or a leaf of "." is always rejected.
func (s *Sandbox) ResolvePotential(child string) (VerifiedPath, error) {
	clean := path.Clean("/" + filepath.ToSlash(child))
	leaf := path.Base(clean)
	if leaf == "" || leaf == "." || leaf == "/" {
		return VerifiedPath{}, ErrEscapesHome
	}

	parentChild := path.Dir(clean)
	parent, err := s.ResolveExisting(parentChild)
	if err != nil {
		return VerifiedPath{}, err
	}

	full := filepath.Join(parent.abs, leaf)
	if !underHome(s.home, full) {
		return VerifiedPath{}, ErrEscapesHome
	}
	return VerifiedPath{abs: full}, nil
}

func underHome(home, candidate string) bool {
	if candidate == home {
		return true
	}
	return len(candidate) > len(home) &&
		candidate[:len(home)] == home &&
		os.IsPathSeparator(candidate[len(home)])
}

func errEscape(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return errors.Join(ErrEscapesHome, err)
}

// ReadAll reads the full contents of the file at vp, hashing it (spec
// §4.1: read_all).
func (s *Sandbox) ReadAll(vp VerifiedPath) (*digest.Digest, []byte, error) {
	info, err := os.Lstat(vp.abs)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, ErrNotFile
	}
	b, err := os.ReadFile(vp.abs)
	if err != nil {
		return nil, nil, err
	}
	d := digest.Sum(b)
	return &d, b, nil
}

// Package credentials implements the on-disk user database: a
// magic-prefixed text file paired with a sidecar holding the magic and the
// SHA-256 of the database, validated at startup and atomically rewritten on
// every mutation (spec §4.2). Grounded on factotum/keyring.go's
// load-or-generate-on-disk pattern and factotum/credentials.go's
// field-delimited record format, generalized to the spec's exact on-disk
// layout and return-code contract (original_source/include/server_db.h).
package credentials

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/keaganluttrell/cape/internal/digest"
	"github.com/keaganluttrell/cape/internal/sandbox"
	"github.com/keaganluttrell/cape/internal/wire"
)

// Magic is the 4-byte literal prefixing both store files (spec §4.2).
var Magic = [4]byte{0xFF, 0xAA, 0xFA, 0xBA}

const (
	defaultAdminUser = "admin"
	// defaultAdminPasswordHex is sha256("password"), the default admin
	// credential the store seeds a brand-new home directory with (spec §6.5).
	defaultAdminPasswordHex = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
)

// UserAccount is one row of the credential database.
type UserAccount struct {
	Username     string
	Permission   wire.Permission
	PasswordHash digest.Digest
}

// Store is the in-memory, mutex-guarded user database backed by the two
// files under <home>/.cape/. The store must serialize Authenticate,
// CreateUser and RemoveUser against each other and against the persistence
// step of every mutation (spec §5 — the source's own data race, fixed here
// with a single mutex).
type Store struct {
	mu    sync.Mutex
	users map[string]UserAccount

	dir      string // <home>/.cape
	dbPath   string
	sidePath string
}

// Open loads (or bootstraps) the credential store rooted at home. home must
// already be an existing, writable directory.
func Open(home string) (*Store, error) {
	dir := filepath.Join(home, sandbox.StoreDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("credentials: create store dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		dbPath:   filepath.Join(dir, sandbox.StoreDBFile),
		sidePath: filepath.Join(dir, sandbox.StoreSidecarFile),
	}

	_, dbErr := os.Stat(s.dbPath)
	_, sideErr := os.Stat(s.sidePath)
	dbAbsent := os.IsNotExist(dbErr)
	sideAbsent := os.IsNotExist(sideErr)

	switch {
	case dbAbsent && sideAbsent:
		if err := s.bootstrap(); err != nil {
			return nil, err
		}
	case dbAbsent != sideAbsent:
		return nil, errors.New("credentials: store is corrupt — exactly one of db/sidecar is present")
	}

	if err := s.loadAndValidate(); err != nil {
		return nil, err
	}
	return s, nil
}

// bootstrap writes a fresh database containing only the default admin user.
func (s *Store) bootstrap() error {
	hash, err := digest.ParseHex(defaultAdminPasswordHex)
	if err != nil {
		return err
	}
	s.users = map[string]UserAccount{
		defaultAdminUser: {Username: defaultAdminUser, Permission: wire.PermAdmin, PasswordHash: hash},
	}
	return s.persistLocked()
}

// loadAndValidate reads both files, checks the sidecar against the db's
// hash, and parses every record into the in-memory map (spec §4.2 steps 4-6).
func (s *Store) loadAndValidate() error {
	dbBytes, err := os.ReadFile(s.dbPath)
	if err != nil {
		return fmt.Errorf("credentials: read db: %w", err)
	}
	sideBytes, err := os.ReadFile(s.sidePath)
	if err != nil {
		return fmt.Errorf("credentials: read sidecar: %w", err)
	}

	if len(sideBytes) != 4+digest.Size || !bytes.Equal(sideBytes[:4], Magic[:]) {
		return errors.New("credentials: sidecar magic mismatch")
	}
	wantHash, err := digest.FromBytes(sideBytes[4:])
	if err != nil {
		return err
	}
	if digest.Sum(dbBytes) != wantHash {
		return errors.New("credentials: sidecar hash does not match database — possible tampering")
	}

	if len(dbBytes) < 4 || !bytes.Equal(dbBytes[:4], Magic[:]) {
		return errors.New("credentials: database magic mismatch")
	}

	users := make(map[string]UserAccount)
	scanner := bufio.NewScanner(bytes.NewReader(dbBytes[4:]))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		acct, err := parseRecord(line)
		if err != nil {
			return fmt.Errorf("credentials: parse record %q: %w", line, err)
		}
		users[acct.Username] = acct
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.users = users
	return nil
}

// parseRecord decodes "<username>:<permission_digit>:<hex_sha256>" (spec §4.2 step 6).
func parseRecord(line string) (UserAccount, error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) != 3 {
		return UserAccount{}, errors.New("malformed record")
	}
	username := parts[0]
	if len(username) == 0 || len(username) > 20 {
		return UserAccount{}, errors.New("username length out of range")
	}
	permDigit, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return UserAccount{}, err
	}
	if len(parts[2]) > 64 {
		return UserAccount{}, errors.New("hash field too long")
	}
	hash, err := digest.ParseHex(parts[2])
	if err != nil {
		return UserAccount{}, err
	}
	return UserAccount{
		Username:     username,
		Permission:   wire.Permission(permDigit),
		PasswordHash: hash,
	}, nil
}

// formatRecord is parseRecord's inverse.
func formatRecord(a UserAccount) string {
	return fmt.Sprintf("%s:%d:%s", a.Username, a.Permission, a.PasswordHash.Hex())
}

// persistLocked rewrites the db file from the in-memory map and recomputes
// the sidecar. Callers must hold mu. Both files are written via a
// write-to-temp-then-rename so a crash mid-write cannot leave a half-written
// file in place for the next startup's validation to choke on.
func (s *Store) persistLocked() error {
	var body bytes.Buffer
	body.Write(Magic[:])
	for _, a := range s.users {
		body.WriteString(formatRecord(a))
		body.WriteByte('\n')
	}

	if err := writeFileAtomic(s.dbPath, body.Bytes(), 0o600); err != nil {
		return fmt.Errorf("credentials: persist db: %w", err)
	}

	hash := digest.Sum(body.Bytes())
	var side bytes.Buffer
	side.Write(Magic[:])
	side.Write(hash.Bytes())
	if err := writeFileAtomic(s.sidePath, side.Bytes(), 0o600); err != nil {
		return fmt.Errorf("credentials: persist sidecar: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

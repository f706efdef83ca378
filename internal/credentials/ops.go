package credentials

import (
	"github.com/keaganluttrell/cape/internal/digest"
	"github.com/keaganluttrell/cape/internal/wire"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
	maxPasswordLen = 32
)

// AuthResult is the outcome of Authenticate.
type AuthResult int

const (
	AuthSuccess AuthResult = iota
	AuthFailed             // unknown user OR wrong password — spec §4.2 deliberately does not distinguish
)

// Authenticate looks up username and compares the hash of password against
// the stored hash. It does not distinguish an absent user from a wrong
// password in its result (spec §4.2, §8 property 7).
func (s *Store) Authenticate(username, password string) (AuthResult, *UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.users[username]
	if !ok {
		return AuthFailed, nil
	}
	if digest.Sum([]byte(password)) != acct.PasswordHash {
		return AuthFailed, nil
	}
	return AuthSuccess, &acct
}

// MutationResult is the outcome of CreateUser / RemoveUser.
type MutationResult int

const (
	MutateSuccess MutationResult = iota
	MutateCredRuleError
	MutateUserExists
	MutateUserNoExist
	MutateIOError
)

// CreateUser validates length rules, rejects an existing username, and
// otherwise inserts and persists the new account (spec §4.2).
func (s *Store) CreateUser(username, password string, perm wire.Permission) MutationResult {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return MutateCredRuleError
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return MutateCredRuleError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return MutateUserExists
	}

	s.users[username] = UserAccount{
		Username:     username,
		Permission:   perm,
		PasswordHash: digest.Sum([]byte(password)),
	}
	if err := s.persistLocked(); err != nil {
		delete(s.users, username)
		return MutateIOError
	}
	return MutateSuccess
}

// RemoveUser deletes username from the store and persists the change. A
// missing user reports MutateUserNoExist — the dedicated code the spec's
// source never wired up (spec §9 Open Question, resolved in DESIGN.md).
func (s *Store) RemoveUser(username string) MutationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return MutateUserNoExist
	}
	removed := s.users[username]
	delete(s.users, username)

	if err := s.persistLocked(); err != nil {
		s.users[username] = removed
		return MutateIOError
	}
	return MutateSuccess
}

// Snapshot returns a copy of the in-memory user map, used by tests to
// verify spec §8 property 8 (re-reading the store matches the live map).
func (s *Store) Snapshot() map[string]UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]UserAccount, len(s.users))
	for k, v := range s.users {
		out[k] = v
	}
	return out
}

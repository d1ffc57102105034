// Package memory is an in-process implementation of the local user and
// profile stores. It backs development runs without a database and the
// engine tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
)

// ErrConflict is returned when a new user reuses a username, email or phone
// number.
var ErrConflict = errors.New("memory: unique constraint violated")

// DefaultRoles are seeded by [New].
var DefaultRoles = []account.Role{
	{ID: 1, Name: account.RoleAdmin, Type: "admin"},
	{ID: 2, Name: account.RoleClubOwner, Type: "club_owner"},
	{ID: 3, Name: account.RoleClient, Type: "client"},
}

type profile struct {
	email string
	phone string
}

// Store holds users, roles and client profiles. Returned users are copies.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[int64]*account.User
	roles    []account.Role
	profiles []profile
	now      func() time.Time
}

// New returns a Store seeded with [DefaultRoles].
func New() *Store {
	roles := make([]account.Role, len(DefaultRoles))
	copy(roles, DefaultRoles)
	return &Store{
		users: make(map[int64]*account.User),
		roles: roles,
		now:   time.Now,
	}
}

// AddClientProfile records an onboarding profile claiming email and phone.
func (s *Store) AddClientProfile(email, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, profile{email: strings.ToLower(email), phone: phone})
}

func (s *Store) FindUser(_ context.Context, lookup account.Lookup) (*account.User, error) {
	if lookup.Empty() {
		return nil, account.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.sortedIDs() {
		u := s.users[id]
		if matches(u.Email, u.PhoneNumber, lookup) {
			return s.copyUser(u), nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.copyUser(u), nil
}

func (s *Store) GetUserByCognitoSub(_ context.Context, sub string) (*account.User, error) {
	return s.findBy(func(u *account.User) bool { return sub != "" && u.CognitoSub == sub })
}

func (s *Store) GetUserByMFATempToken(_ context.Context, token string) (*account.User, error) {
	return s.findBy(func(u *account.User) bool { return token != "" && u.MFA.TempToken == token })
}

func (s *Store) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := s.findBy(func(u *account.User) bool { return u.Username == username })
	if errors.Is(err, account.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateUser inserts a user with the next sequential id. RoleID must name a
// seeded role.
func (s *Store) CreateUser(_ context.Context, input account.NewUser) (*account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roleByID(input.RoleID)
	if !ok {
		return nil, account.ErrNotFound
	}
	email := strings.ToLower(input.Email)
	for _, u := range s.users {
		if u.Username == input.Username ||
			(email != "" && u.Email == email) ||
			(input.PhoneNumber != "" && u.PhoneNumber == input.PhoneNumber) {
			return nil, ErrConflict
		}
	}

	s.nextID++
	now := s.now().UTC()
	u := &account.User{
		ID:           s.nextID,
		Username:     input.Username,
		Email:        email,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: input.PasswordHash,
		Confirmed:    input.Confirmed,
		Blocked:      input.Blocked,
		IsVerified:   input.IsVerified,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return s.copyUser(u), nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return account.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) LinkCognitoSub(_ context.Context, id int64, sub string) error {
	return s.update(id, func(u *account.User) { u.CognitoSub = sub })
}

func (s *Store) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return s.update(id, func(u *account.User) { u.PasswordHash = hash })
}

func (s *Store) UpdateMFA(_ context.Context, id int64, state account.MFAState) error {
	return s.update(id, func(u *account.User) { u.MFA = state })
}

func (s *Store) SetVerified(_ context.Context, id int64, verified bool) error {
	return s.update(id, func(u *account.User) { u.IsVerified = verified })
}

// SetBlocked is not part of the engine's store interface; operators block
// users from the CMS.
func (s *Store) SetBlocked(_ context.Context, id int64, blocked bool) error {
	return s.update(id, func(u *account.User) { u.Blocked = blocked })
}

func (s *Store) FindRole(_ context.Context, nameOrType string) (*account.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if strings.EqualFold(r.Name, nameOrType) || strings.EqualFold(r.Type, nameOrType) {
			role := r
			return &role, nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *Store) ClientProfileExists(_ context.Context, lookup account.Lookup) (bool, error) {
	if lookup.Empty() {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if matches(p.email, p.phone, lookup) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) findBy(match func(*account.User) bool) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.sortedIDs() {
		if u := s.users[id]; match(u) {
			return s.copyUser(u), nil
		}
	}
	return nil, account.ErrNotFound
}

func (s *Store) update(id int64, apply func(*account.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return account.ErrNotFound
	}
	apply(u)
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) roleByID(id int64) (account.Role, bool) {
	for _, r := range s.roles {
		if r.ID == id {
			return r, true
		}
	}
	return account.Role{}, false
}

// sortedIDs gives lookups a stable order: the oldest matching user wins.
func (s *Store) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.users))
	for id := int64(1); id <= s.nextID; id++ {
		if _, ok := s.users[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) copyUser(u *account.User) *account.User {
	out := *u
	return &out
}

func matches(email, phone string, lookup account.Lookup) bool {
	if lookup.Email != "" && strings.EqualFold(email, lookup.Email) {
		return true
	}
	if phone == "" {
		return false
	}
	for _, p := range lookup.Phones {
		if p == phone {
			return true
		}
	}
	return false
}

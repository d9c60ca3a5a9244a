package auth

import (
	"sync"
	"time"

	"meridiandb/src/helpers"
)

// UserStore manages user credentials in memory. Passwords are stored
// only as Argon2id hashes.
type UserStore struct {
	users []User
	mu    sync.RWMutex
}

func NewUserStore() *UserStore {
	return &UserStore{}
}

// AddUser adds a new user to the store
func (s *UserStore) AddUser(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existingUser := range s.users {
		if existingUser.Username == username {
			return ErrUserAlreadyExists
		}
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return err
	}

	s.users = append(s.users, User{
		ID:             helpers.GenerateUUID(),
		Username:       username,
		PasswordHash:   passwordHash,
		CreatedAt:      time.Now(),
		LastModifiedAt: time.Now(),
	})
	return nil
}

// UpdateUser replaces an existing user's password.
func (s *UserStore) UpdateUser(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existingUser := range s.users {
		if existingUser.Username == username {
			passwordHash, err := hashPassword(password)
			if err != nil {
				return err
			}
			s.users[i].PasswordHash = passwordHash
			s.users[i].LastModifiedAt = time.Now()
			return nil
		}
	}
	return ErrUserNotFound
}

// RemoveUser removes a user from the store
func (s *UserStore) RemoveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existingUser := range s.users {
		if existingUser.Username == username {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}

// GetUser retrieves a user by username, without password material.
func (s *UserStore) GetUser(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, storedUser := range s.users {
		if storedUser.Username == username {
			return &User{
				ID:       storedUser.ID,
				Username: storedUser.Username,
				// Don't include password
			}, nil
		}
	}
	return nil, ErrUserNotFound
}

// ListUsers returns a list of all usernames
func (s *UserStore) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, len(s.users))
	for i, user := range s.users {
		usernames[i] = user.Username
	}
	return usernames
}

// Authenticate checks a username/password pair against the store.
func (s *UserStore) Authenticate(username, password string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, storedUser := range s.users {
		if storedUser.Username == username {
			if verifyPassword(password, storedUser.PasswordHash) {
				return nil
			}
			return ErrInvalidCredentials
		}
	}
	return ErrInvalidCredentials
}

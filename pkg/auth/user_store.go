package auth

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("username must be 3-50 alphanumeric characters")
	ErrPasswordHashFailed = errors.New("failed to hash password")
	ErrWrongPassword      = errors.New("wrong password")
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	BcryptCost        = 12
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User represents an account.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Never serialize password hash
	Role         string `json:"role"`
	CreatedAt    int64  `json:"created_at"`
}

// UserStore manages accounts and password verification.
type UserStore struct {
	users       map[string]*User  // userID -> User
	usernameMap map[string]string // username -> userID
	mu          sync.RWMutex
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:       make(map[string]*User),
		usernameMap: make(map[string]string),
	}
}

func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// CreateUser adds a user with a bcrypt-hashed password.
func (s *UserStore) CreateUser(username, password, role string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if !validRoles[role] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernameMap[username]; exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordHashFailed, err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}
	s.users[user.ID] = user
	s.usernameMap[username] = user.ID
	return user, nil
}

// Authenticate verifies a username/password pair.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	userID, ok := s.usernameMap[username]
	if !ok {
		s.mu.RUnlock()
		// Burn a comparison anyway so missing users cost the same as
		// wrong passwords.
		bcrypt.CompareHashAndPassword(
			[]byte("$2a$12$000000000000000000000uGJzwOH6wZhg1mNEh1zBUZi0lJkCFS2"),
			[]byte(password))
		return nil, ErrUserNotFound
	}
	user := s.users[userID]
	s.mu.RUnlock()

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return user, nil
}

// GetUser returns the user with the given id.
func (s *UserStore) GetUser(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

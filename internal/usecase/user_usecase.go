package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// Session is the verified identity attached to a bearer token.
type Session struct {
	UserID   int
	Username string
	Role     string
	IssuedAt time.Time
}

type UserUseCase interface {
	Register(user *domain.User, password string) (*domain.User, error)
	// Authenticate checks the credentials and, on success, issues an opaque
	// bearer token for the session.
	Authenticate(username, password string) (string, *domain.User, error)
	ValidateToken(token string) (*Session, bool)
	GetUserByID(id int) (*domain.User, error)
	ListUsers() ([]domain.User, error)
	UpdateUser(id int, user *domain.User, newPassword string) (*domain.User, error)
	DeleteUser(id int) error
	UsernameExists(username string) (bool, error)
}

var _ UserUseCase = (*userUseCase)(nil)

type userUseCase struct {
	userRepo domain.UserRepository
	images   ImageRemover
	log      *logrus.Logger

	sessionMu sync.RWMutex
	sessions  map[string]Session
}

func NewUserUseCase(repo domain.UserRepository, images ImageRemover, logger *logrus.Logger) UserUseCase {
	return &userUseCase{
		userRepo: repo,
		images:   images,
		log:      logger,
		sessions: make(map[string]Session),
	}
}

func (uc *userUseCase) Register(user *domain.User, password string) (*domain.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.Role != domain.RoleUser && user.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("invalid role: %s", user.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.log.Errorf("Use Case: failed to hash password for '%s': %v", user.Username, err)
		return nil, fmt.Errorf("internal error processing password: %w", err)
	}
	user.PasswordHash = string(hashed)
	user.Cart = []domain.CartItem{}
	user.CreatedAt = time.Now().UTC()

	created, err := uc.userRepo.CreateUser(user)
	if err != nil {
		uc.log.Warnf("Use Case: repository failed to create user '%s': %v", user.Username, err)
		return nil, err
	}
	uc.log.Infof("Use Case: user '%s' registered with ID %d", created.Username, created.ID)
	return created, nil
}

func (uc *userUseCase) Authenticate(username, password string) (string, *domain.User, error) {
	user, err := uc.userRepo.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.log.Warnf("Use Case: authentication failed, unknown username '%s'", username)
			return "", nil, errors.New("invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.log.Warnf("Use Case: authentication failed, wrong password for '%s'", username)
		return "", nil, errors.New("invalid credentials")
	}

	token := uuid.NewString()
	uc.sessionMu.Lock()
	uc.sessions[token] = Session{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		IssuedAt: time.Now().UTC(),
	}
	uc.sessionMu.Unlock()

	uc.log.Infof("Use Case: user '%s' (ID %d) authenticated", user.Username, user.ID)
	return token, user, nil
}

func (uc *userUseCase) ValidateToken(token string) (*Session, bool) {
	uc.sessionMu.RLock()
	defer uc.sessionMu.RUnlock()

	session, ok := uc.sessions[token]
	if !ok {
		return nil, false
	}
	return &session, true
}

func (uc *userUseCase) GetUserByID(id int) (*domain.User, error) {
	return uc.userRepo.GetUserByID(id)
}

func (uc *userUseCase) ListUsers() ([]domain.User, error) {
	return uc.userRepo.ListUsers()
}

// UpdateUser replaces the profile fields; an empty newPassword keeps the
// current hash.
func (uc *userUseCase) UpdateUser(id int, user *domain.User, newPassword string) (*domain.User, error) {
	existing, err := uc.userRepo.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(user.Username) == "" {
		user.Username = existing.Username
	}
	if user.Role == "" {
		user.Role = existing.Role
	}
	if user.Role != domain.RoleUser && user.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("invalid role: %s", user.Role)
	}
	user.CreatedAt = existing.CreatedAt
	user.Cart = existing.Cart

	if newPassword != "" {
		if len(newPassword) < 6 {
			return nil, errors.New("password must be at least 6 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("internal error processing password: %w", err)
		}
		user.PasswordHash = string(hashed)
	} else {
		user.PasswordHash = existing.PasswordHash
	}

	updated, err := uc.userRepo.UpdateUser(id, user)
	if err != nil {
		uc.log.Warnf("Use Case: failed to update user ID %d: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: user %d updated", id)
	return updated, nil
}

func (uc *userUseCase) DeleteUser(id int) error {
	if err := uc.userRepo.DeleteUser(id); err != nil {
		return err
	}
	if uc.images != nil {
		if err := uc.images.Remove("users", id); err != nil {
			uc.log.Warnf("Use Case: user %d deleted but profile picture could not be removed: %v", id, err)
		}
	}

	// Drop any live sessions for the deleted user.
	uc.sessionMu.Lock()
	for token, session := range uc.sessions {
		if session.UserID == id {
			delete(uc.sessions, token)
		}
	}
	uc.sessionMu.Unlock()

	uc.log.Infof("Use Case: user %d deleted", id)
	return nil
}

func (uc *userUseCase) UsernameExists(username string) (bool, error) {
	return uc.userRepo.UsernameExists(username)
}

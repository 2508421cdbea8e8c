package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles authentication: API key validation for analysis
// endpoints and admin credential checks for management endpoints.
type AuthService struct {
	keyRepo  *repository.APIKeyRepository
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(keyRepo *repository.APIKeyRepository, userRepo *repository.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{keyRepo: keyRepo, userRepo: userRepo, logger: logger}
}

// ValidateAPIKey validates a raw API key and returns the matching record.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("empty API key")
	}

	key, err := s.keyRepo.FindByKeyHash(ctx, HashAPIKey(rawKey))
	if err != nil {
		return nil, fmt.Errorf("invalid API key")
	}
	if !key.IsActive {
		return nil, fmt.Errorf("API key is disabled")
	}

	// Update last-used timestamp async; failures only lose bookkeeping.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keyRepo.TouchLastUsed(ctx, key.ID); err != nil {
			s.logger.Debug("failed to update key last_used_at", zap.Error(err))
		}
	}()

	return key, nil
}

// CreateAPIKey generates and stores a new API key, returning the full key
// exactly once.
func (s *AuthService) CreateAPIKey(ctx context.Context, name string) (string, *models.APIKey, error) {
	fullKey, keyHash, keyPrefix := GenerateAPIKey()
	key, err := s.keyRepo.Insert(ctx, keyHash, keyPrefix, name)
	if err != nil {
		return "", nil, fmt.Errorf("create api key: %w", err)
	}
	return fullKey, key, nil
}

// AuthenticateAdmin verifies an admin username/password pair.
func (s *AuthService) AuthenticateAdmin(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return user, nil
}

// CreateDefaultAdmin creates the admin account if it does not exist yet.
func (s *AuthService) CreateDefaultAdmin(ctx context.Context, username, password string) error {
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil // already exists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := s.userRepo.Insert(ctx, username, string(hash)); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	s.logger.Info("created default admin user", zap.String("username", username))
	return nil
}

// BootstrapAPIKey stores a pre-shared key from configuration if no key with
// its hash exists yet. Used for first-start provisioning.
func (s *AuthService) BootstrapAPIKey(ctx context.Context, rawKey string) error {
	if rawKey == "" {
		return nil
	}
	keyHash := HashAPIKey(rawKey)
	if _, err := s.keyRepo.FindByKeyHash(ctx, keyHash); err == nil {
		return nil // already provisioned
	}

	prefix := rawKey
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	if _, err := s.keyRepo.Insert(ctx, keyHash, prefix, "bootstrap"); err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}
	s.logger.Info("provisioned bootstrap API key")
	return nil
}

// HashAPIKey computes the SHA-256 hex digest of an API key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// GenerateAPIKey generates a new API key.
// Returns: (fullKey, keyHash, keyPrefix)
func GenerateAPIKey() (string, string, string) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to time-based key if random fails
		b = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	}

	fullKey := fmt.Sprintf("ps-key-%s", hex.EncodeToString(b))
	keyHash := HashAPIKey(fullKey)
	keyPrefix := fullKey[:16]

	return fullKey, keyHash, keyPrefix
}

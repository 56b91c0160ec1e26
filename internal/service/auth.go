package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carrierd/carrierd/internal/model"
	"github.com/carrierd/carrierd/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAdminExists        = errors.New("admin already exists")
)

// KeyPrefix starts every raw API key.
const KeyPrefix = "carrierd_"

type JWTPrincipal struct {
	AdminID string
	Email   string
}

type AuthService struct {
	store     *store.Store
	jwtSecret []byte
}

func NewAuthService(st *store.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     st,
		jwtSecret: []byte(jwtSecret),
	}
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// ValidateAPIKey checks the provided raw API key against stored key hashes
// and returns the credential with its grants loaded.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*model.Credential, error) {
	key, err := s.store.GetAPIKeyByHash(ctx, store.HashAPIKey(rawKey))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	// Update last used timestamp (fire and forget)
	go s.store.UpdateAPIKeyLastUsed(context.Background(), key.ID) //nolint:errcheck

	return key, nil
}

// NewAPIKey generates a raw key, stores its hash together with key's grants
// and returns the raw key. The raw key is not recoverable afterwards.
func (s *AuthService) NewAPIKey(ctx context.Context, key *model.APIKey) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	rawKey := KeyPrefix + hex.EncodeToString(randomBytes)

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key id: %w", err)
	}
	key.ID = id.String()
	key.KeyHash = store.HashAPIKey(rawKey)
	key.KeyPrefix = rawKey[:len(KeyPrefix)+8]

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", fmt.Errorf("create api key: %w", err)
	}
	return rawKey, nil
}

// ---------------------------------------------------------------------------
// Admins
// ---------------------------------------------------------------------------

// CreateAdmin stores a new admin with a bcrypt hash of password. Emails
// are unique; ErrAdminExists is returned for a taken one.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string, super bool) (*model.Admin, error) {
	if _, err := s.store.GetAdminByEmail(ctx, email); err == nil {
		return nil, ErrAdminExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate admin id: %w", err)
	}
	admin := &model.Admin{
		ID:           id.String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
		IsSuperAdmin: super,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Login verifies an admin's password and records the login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Admin, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	_ = s.store.UpdateAdminLastLogin(ctx, admin.ID)
	return admin, nil
}

// ---------------------------------------------------------------------------
// JWT
// ---------------------------------------------------------------------------

// ValidateJWT verifies a JWT bearer token and returns the associated admin identity.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*JWTPrincipal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &JWTPrincipal{
		AdminID: claims.AdminID,
		Email:   claims.Email,
	}, nil
}

// IssueJWT creates a new signed JWT token for the given admin.
func (s *AuthService) IssueJWT(ctx context.Context, adminID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "carrierd",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type jwtClaims struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

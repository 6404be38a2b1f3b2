package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Staniell/MonthWise/internal/auth"
	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// DefaultUnlockTTL is how long an unlock token stays valid.
const DefaultUnlockTTL = 15 * time.Minute

const unlockSecretLen = 32

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotSecured      = errors.New("profile is not secured")
)

// SecurityService manages password protection of profiles.
//
// The installation salt and the unlock signing secret are generated on first
// use and kept in settings.
type SecurityService struct {
	store      storage.Store
	scheme     string
	hasherOpts []auth.HasherOption
	ttl        time.Duration

	mu     sync.Mutex
	hasher *auth.PasswordHasher
	tokens *auth.UnlockTokens
}

// NewSecurityService creates a SecurityService. An empty scheme selects
// argon2id; a zero ttl selects DefaultUnlockTTL.
func NewSecurityService(store storage.Store, scheme string, ttl time.Duration, opts ...auth.HasherOption) *SecurityService {
	if ttl <= 0 {
		ttl = DefaultUnlockTTL
	}
	return &SecurityService{
		store:      store,
		scheme:     scheme,
		hasherOpts: opts,
		ttl:        ttl,
	}
}

// EnableSecurity sets or replaces the password of profileID.
func (s *SecurityService) EnableSecurity(ctx context.Context, profileID, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hasher, _, err := s.primitives(ctx)
	if err != nil {
		return err
	}
	digest, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	_, err = s.store.Profiles().Update(ctx, profileID, models.ProfilePatch{
		IsSecured:    models.Set(true),
		PasswordHash: models.Set(&digest),
	})
	if err != nil {
		return fmt.Errorf("enable security: %w", err)
	}

	slog.InfoContext(ctx, "Profile secured", "profile_id", profileID, "scheme", hasher.Scheme())
	return nil
}

// DisableSecurity removes the password of profileID after checking it.
func (s *SecurityService) DisableSecurity(ctx context.Context, profileID, password string) error {
	ok, err := s.VerifyPassword(ctx, profileID, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidPassword
	}

	_, err = s.store.Profiles().Update(ctx, profileID, models.ProfilePatch{
		IsSecured:    models.Set(false),
		PasswordHash: models.Set[*string](nil),
	})
	if err != nil {
		return fmt.Errorf("disable security: %w", err)
	}

	slog.InfoContext(ctx, "Profile security removed", "profile_id", profileID)
	return nil
}

// VerifyPassword reports whether password opens profileID. It fails with
// ErrNotSecured when the profile has no password.
func (s *SecurityService) VerifyPassword(ctx context.Context, profileID, password string) (bool, error) {
	p, err := s.store.Profiles().FindByID(ctx, profileID)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	if !p.IsSecured || p.PasswordHash == nil {
		return false, ErrNotSecured
	}

	hasher, _, err := s.primitives(ctx)
	if err != nil {
		return false, err
	}
	ok, err := hasher.Verify(password, *p.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		slog.WarnContext(ctx, "Password rejected", "profile_id", profileID)
	}
	return ok, nil
}

// Unlock checks password and returns a token that ValidateUnlock accepts for
// profileID until it expires.
func (s *SecurityService) Unlock(ctx context.Context, profileID, password string) (string, error) {
	ok, err := s.VerifyPassword(ctx, profileID, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidPassword
	}

	_, tokens, err := s.primitives(ctx)
	if err != nil {
		return "", err
	}
	return tokens.Issue(profileID)
}

// ValidateUnlock checks that token unlocks profileID. Profiles without a
// password need no token.
func (s *SecurityService) ValidateUnlock(ctx context.Context, token, profileID string) error {
	p, err := s.store.Profiles().FindByID(ctx, profileID)
	if err != nil {
		return fmt.Errorf("validate unlock: %w", err)
	}
	if !p.IsSecured {
		return nil
	}

	_, tokens, err := s.primitives(ctx)
	if err != nil {
		return err
	}
	_, err = tokens.Validate(token, profileID)
	return err
}

func (s *SecurityService) primitives(ctx context.Context) (*auth.PasswordHasher, *auth.UnlockTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasher != nil {
		return s.hasher, s.tokens, nil
	}

	salt, err := s.loadOrCreateSecret(ctx, models.SettingAuthInstallationSalt, auth.InstallationSaltLen)
	if err != nil {
		return nil, nil, err
	}
	secret, err := s.loadOrCreateSecret(ctx, models.SettingAuthUnlockSecret, unlockSecretLen)
	if err != nil {
		return nil, nil, err
	}

	hasher, err := auth.NewPasswordHasher(s.scheme, salt, s.hasherOpts...)
	if err != nil {
		return nil, nil, err
	}
	s.hasher = hasher
	s.tokens = auth.NewUnlockTokens(secret, s.ttl)
	return s.hasher, s.tokens, nil
}

func (s *SecurityService) loadOrCreateSecret(ctx context.Context, key string, size int) ([]byte, error) {
	value, ok, err := s.store.Settings().Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if ok {
		b, err := auth.DecodeSecret(value)
		if err == nil && len(b) >= size {
			return b, nil
		}
		// An unreadable secret is replaced; digests made with it no longer verify.
		slog.WarnContext(ctx, "Replacing unreadable secret", "key", key)
	}

	b, err := auth.RandomBytes(size)
	if err != nil {
		return nil, err
	}
	if err := s.store.Settings().Set(ctx, key, auth.EncodeSecret(b)); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	return b, nil
}

// Package auth provides the password and unlock-token primitives used by
// profile security.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported digest schemes.
const (
	SchemeArgon2id = "argon2id"
	SchemeBcrypt   = "bcrypt"
)

// MinPasswordLength applies to passwords set through profile security.
const MinPasswordLength = 4

// InstallationSaltLen is the size of the random per-installation salt.
const InstallationSaltLen = 16

var (
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrUnknownScheme   = errors.New("unknown password scheme")
	ErrMalformedDigest = errors.New("malformed password digest")
	ErrMissingSalt     = errors.New("installation salt required")
)

// Argon2Params tunes the argon2id key derivation.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params suits an interactive unlock on a phone-class device.
func DefaultArgon2Params() Argon2Params {
	parallelism := runtime.NumCPU()
	if parallelism > 4 {
		parallelism = 4
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: uint8(parallelism),
		KeyLen:      32,
	}
}

// PasswordHasher produces and checks password digests.
//
// The argon2id scheme is keyed with a random salt generated once per
// installation, so the same password always yields the same digest on one
// device but different digests on different devices. The salt is written
// into the digest, so a restored digest still verifies elsewhere. The bcrypt
// scheme salts every call. Verify accepts digests of either scheme regardless
// of which one Hash produces.
type PasswordHasher struct {
	scheme     string
	salt       []byte
	params     Argon2Params
	bcryptCost int
}

// HasherOption configures a PasswordHasher.
type HasherOption func(*PasswordHasher)

// WithArgon2Params overrides the argon2id parameters used by Hash.
func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *PasswordHasher) { h.params = p }
}

// WithBcryptCost overrides the bcrypt cost used by Hash.
func WithBcryptCost(cost int) HasherOption {
	return func(h *PasswordHasher) { h.bcryptCost = cost }
}

// NewPasswordHasher returns a hasher for scheme. installationSalt is required
// for argon2id.
func NewPasswordHasher(scheme string, installationSalt []byte, opts ...HasherOption) (*PasswordHasher, error) {
	if scheme == "" {
		scheme = SchemeArgon2id
	}
	if scheme != SchemeArgon2id && scheme != SchemeBcrypt {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	if scheme == SchemeArgon2id && len(installationSalt) < InstallationSaltLen {
		return nil, ErrMissingSalt
	}

	h := &PasswordHasher{
		scheme:     scheme,
		salt:       append([]byte(nil), installationSalt...),
		params:     DefaultArgon2Params(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Scheme reports the scheme Hash uses.
func (h *PasswordHasher) Scheme() string { return h.scheme }

// Hash returns the digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	switch h.scheme {
	case SchemeBcrypt:
		digest, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		return string(digest), nil
	default:
		return h.hashArgon2(password, h.params), nil
	}
}

// digest format (PHC): $argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<base64 salt>$<base64 key>
func (h *PasswordHasher) hashArgon2(password string, p Argon2Params) string {
	key := argon2.IDKey([]byte(password), h.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(key))
}

// Verify reports whether password matches digest. A mismatch is not an
// error; an unreadable digest is. argon2id digests carry their own salt, so
// they verify on any installation.
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		p, salt, want, err := parseArgon2Digest(digest)
		if err != nil {
			return false, err
		}
		if salt == nil {
			// Digests without a salt segment were keyed with this installation's salt.
			if len(h.salt) == 0 {
				return false, ErrMissingSalt
			}
			salt = h.salt
		}
		got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
		return subtle.ConstantTimeCompare(got, want) == 1, nil

	case strings.HasPrefix(digest, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
		return true, nil

	default:
		return false, ErrMalformedDigest
	}
}

func parseArgon2Digest(digest string) (p Argon2Params, salt, key []byte, err error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", [salt,] key
	parts := strings.Split(digest, "$")
	if len(parts) != 5 && len(parts) != 6 {
		return Argon2Params{}, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: version %q", ErrMalformedDigest, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: params %q", ErrMalformedDigest, parts[3])
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: params %q", ErrMalformedDigest, parts[3])
	}

	if len(parts) == 6 {
		salt, err = base64.RawStdEncoding.DecodeString(parts[4])
		if err != nil || len(salt) == 0 {
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: salt", ErrMalformedDigest)
		}
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[len(parts)-1])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: key", ErrMalformedDigest)
	}
	return p, salt, key, nil
}

// ValidatePassword enforces MinPasswordLength.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// NewInstallationSalt returns InstallationSaltLen random bytes.
func NewInstallationSalt() ([]byte, error) {
	return RandomBytes(InstallationSaltLen)
}

// RandomBytes reads n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// EncodeSecret and DecodeSecret convert salts and keys to the text form kept
// in settings.
func EncodeSecret(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}

func DecodeSecret(s string) ([]byte, error) {
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	return b, nil
}

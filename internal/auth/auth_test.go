package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the tests fast.
var testParams = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLen: 32}

func newTestHasher(t *testing.T, scheme string, salt []byte) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(scheme, salt, WithArgon2Params(testParams), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return h
}

func TestArgon2HashIsDeterministicPerInstallation(t *testing.T) {
	saltA, err := NewInstallationSalt()
	require.NoError(t, err)
	saltB, err := NewInstallationSalt()
	require.NoError(t, err)
	require.NotEqual(t, saltA, saltB)

	a := newTestHasher(t, SchemeArgon2id, saltA)
	b := newTestHasher(t, SchemeArgon2id, saltB)

	d1, err := a.Hash("1234")
	require.NoError(t, err)
	d2, err := a.Hash("1234")
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.True(t, strings.HasPrefix(d1, "$argon2id$v=19$m=1024,t=1,p=1$"))

	other, err := b.Hash("1234")
	require.NoError(t, err)
	assert.NotEqual(t, d1, other)

	ok, err := a.Verify("1234", d1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Verify("12345", d1)
	require.NoError(t, err)
	assert.False(t, ok)

	// The digest carries its salt, so another installation can check it.
	ok, err = b.Verify("1234", d1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Verify("4321", d1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2DigestEmbedsInstallationSalt(t *testing.T) {
	salt, err := NewInstallationSalt()
	require.NoError(t, err)
	h := newTestHasher(t, SchemeArgon2id, salt)

	digest, err := h.Hash("secret1")
	require.NoError(t, err)
	parts := strings.Split(digest, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, EncodeSecret(salt), parts[4])

	// A bcrypt hasher on a fresh installation has no salt of its own.
	fresh := newTestHasher(t, SchemeBcrypt, nil)
	ok, err := fresh.Verify("secret1", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	// Digests without a salt segment fall back to the installation salt.
	legacy := strings.Join(append(parts[:4:4], parts[5]), "$")
	ok, err = h.Verify("secret1", legacy)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = fresh.Verify("secret1", legacy)
	require.ErrorIs(t, err, ErrMissingSalt)
}

func TestBcryptScheme(t *testing.T) {
	salt, err := NewInstallationSalt()
	require.NoError(t, err)
	h := newTestHasher(t, SchemeBcrypt, salt)
	assert.Equal(t, SchemeBcrypt, h.Scheme())

	d1, err := h.Hash("secret")
	require.NoError(t, err)
	d2, err := h.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2, "bcrypt salts every call")

	ok, err := h.Verify("secret", d1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify("Secret", d2)
	require.NoError(t, err)
	assert.False(t, ok)

	// Digests from the other scheme still verify.
	argon := newTestHasher(t, SchemeArgon2id, salt)
	digest, err := argon.Hash("secret")
	require.NoError(t, err)
	ok, err = h.Verify("secret", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewPasswordHasherErrors(t *testing.T) {
	_, err := NewPasswordHasher("md5", nil)
	require.ErrorIs(t, err, ErrUnknownScheme)

	_, err = NewPasswordHasher(SchemeArgon2id, []byte("short"))
	require.ErrorIs(t, err, ErrMissingSalt)

	h, err := NewPasswordHasher("", make([]byte, InstallationSaltLen))
	require.NoError(t, err)
	assert.Equal(t, SchemeArgon2id, h.Scheme())
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := newTestHasher(t, SchemeArgon2id, make([]byte, InstallationSaltLen))

	for _, digest := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=1024,t=1$abc",
		"$argon2id$v=18$m=1024,t=1,p=1$YWJj",
		"$argon2id$v=19$m=0,t=1,p=1$YWJj",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$YWJj",
		"$argon2id$v=19$m=1024,t=1,p=1$YWJj$YWJj$YWJj",
		"$2a$04$tooshort",
	} {
		_, err := h.Verify("1234", digest)
		assert.ErrorIs(t, err, ErrMalformedDigest, "digest %q", digest)
	}
}

func TestValidatePassword(t *testing.T) {
	require.ErrorIs(t, ValidatePassword("abc"), ErrWeakPassword)
	require.NoError(t, ValidatePassword("abcd"))
	require.NoError(t, ValidatePassword("ññññ"))
}

func TestSecretEncoding(t *testing.T) {
	b, err := RandomBytes(32)
	require.NoError(t, err)
	got, err := DecodeSecret(EncodeSecret(b))
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = DecodeSecret("not base64!")
	require.Error(t, err)
}

func TestUnlockTokens(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	m := NewUnlockTokens(secret, 5*time.Minute)

	token, err := m.Issue("profile-1")
	require.NoError(t, err)

	claims, err := m.Validate(token, "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.ProfileID)

	_, err = m.Validate(token, "profile-2")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("", "profile-1")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = NewUnlockTokens([]byte("another secret, also 32 bytes!!!"), time.Minute).Validate(token, "profile-1")
	require.ErrorIs(t, err, ErrInvalidToken)

	t.Run("expired", func(t *testing.T) {
		issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		short := NewUnlockTokens(secret, time.Minute)
		short.now = func() time.Time { return issuedAt }
		token, err := short.Issue("profile-1")
		require.NoError(t, err)

		short.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
		_, err = short.Validate(token, "profile-1")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/school-admin/internal"
	coreuser "github.com/frahmantamala/school-admin/internal/core/user"
	userpkg "github.com/frahmantamala/school-admin/internal/user"
)

// Verifier checks a username/password pair against the stored bcrypt hash.
type Verifier struct {
	users     UserRepository
	dummyHash []byte
}

// NewVerifier precomputes a hash at cost so unknown usernames take as long as wrong passwords.
func NewVerifier(users UserRepository, cost int) (*Verifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, err
	}
	return &Verifier{users: users, dummyHash: dummy}, nil
}

// Verify never reveals whether the username exists: both misses return ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, username, password string) (*coreuser.User, error) {
	row, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, internal.NewInternalError("failed to load credentials", err)
	}
	if row == nil {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return nil, internal.ErrInvalidCredentials
	}
	if err := VerifyPassword(row.PasswordHash, password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	return userpkg.FromDataModel(row), nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

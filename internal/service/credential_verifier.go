package service

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type credentialUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// dummyHash is compared against when the username does not exist so both paths cost one bcrypt run.
var dummyHash = mustHash("not-a-real-password")

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}

// CredentialVerifier checks a username/password pair against stored bcrypt hashes.
type CredentialVerifier struct {
	users credentialUserRepository
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users credentialUserRepository) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify returns the user when the credentials match. Unknown users, wrong passwords and
// inactive accounts all produce the same INVALID_CREDENTIALS error.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

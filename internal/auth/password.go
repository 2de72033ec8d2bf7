package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used in production. Tests pass a
// lower cost through NewPasswordServiceForTest.
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs would be silently
// truncated, so they are rejected instead.
const maxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for inputs over 72 bytes.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")

	// ErrPasswordMismatch is returned by Verify when the password is wrong,
	// and also when the account has no password at all.
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService hashes and checks account passwords with bcrypt.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses the given bcrypt cost, normally
// bcrypt.MinCost, so that tests in other packages stay fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. The salt and cost are encoded in
// the result, which is stored as-is in users.password_hash.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash.
//
// Accounts created through GitHub sign-in have an empty hash; they never
// match, whatever the input.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

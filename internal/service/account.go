// Package service holds the business rules. Handlers call services;
// services call repositories through the interfaces in internal/repository
// and never see HTTP or SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

const (
	MaxUsernameLength    = 64
	MaxDisplayNameLength = 100

	// MsgInvalidCredentials is the only message a failed login ever shows.
	MsgInvalidCredentials = "user not found or password invalid"

	MsgUsernameTaken = "username taken"
)

type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// SignUp registers a new account.
//
// The username and display name are trimmed; a blank display name falls
// back to the username. A taken username is reported before anything is
// written. The returned user is the row as inserted, ID included, and is
// what the caller should build the session from.
func (s *AccountService) SignUp(ctx context.Context, username, rawPassword, displayName, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if rawPassword == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if displayName == "" {
		displayName = username
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("display_name",
			fmt.Sprintf("display name must be %d characters or fewer", MaxDisplayNameLength))
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperror.Conflict("username", MsgUsernameTaken)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/account: checking username: %w", err)
	}

	hash, err := s.passwords.Hash(rawPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: creating user %q: %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// LogIn checks a username and password. An unknown username and a wrong
// password fail the same way, with MsgInvalidCredentials.
func (s *AccountService) LogIn(ctx context.Context, username, rawPassword string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || rawPassword == "" {
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return user, nil
}

// Profile is a user page as seen by the current visitor.
type Profile struct {
	User   *model.User
	IsSelf bool
}

// Profile loads username's account. IsSelf is true only when the visitor
// has a session for that same username.
func (s *AccountService) Profile(ctx context.Context, username string, current model.Identity, present bool) (*Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile %q: %w", username, err)
	}
	return &Profile{
		User:   user,
		IsSelf: present && current.Username == user.Username,
	}, nil
}

// LoginWithGitHub returns the account linked to ghUser, creating it on first
// sign-in. The new account takes the GitHub login as its username and has no
// password. If that username already belongs to a password account the
// sign-in is refused rather than merged.
func (s *AccountService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	if ghUser == nil {
		return nil, errors.New("service/account: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	if err == nil {
		s.logger.Info("user logged in via GitHub", slog.String("userID", user.ID))
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: looking up github user %d: %w", ghUser.ID, err)
	}

	if _, err := s.users.GetUserByUsername(ctx, ghUser.Login); err == nil {
		return nil, apperror.Conflict("username",
			fmt.Sprintf("username %q is already registered; log in with your password", ghUser.Login))
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking username: %w", err)
	}

	displayName := strings.TrimSpace(ghUser.Name)
	if displayName == "" {
		displayName = ghUser.Login
	}
	id := ghUser.ID
	user = &model.User{
		Username:    ghUser.Login,
		DisplayName: displayName,
		Email:       ghUser.Email,
		GitHubID:    &id,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: creating github user %q: %w", ghUser.Login, err)
	}

	s.logger.Info("user signed up via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or fewer", MaxUsernameLength))
	}
	if strings.ContainsAny(username, "/?#% \t") {
		return apperror.ValidationFailed("username", "username may not contain spaces or / ? # %")
	}
	return nil
}

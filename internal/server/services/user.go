// Package services contains the server-side business logic: UserService
// registers users, checks credentials, issues and refreshes token pairs, and
// manages the encrypted email of the signed-in user.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	MaxUsernameLength = 64
	MaxLanguageLength = 8
)

// RegisterInput is a registration request. Email and PasswordConfirm are
// optional.
type RegisterInput struct {
	Username          string
	Password          string
	PasswordConfirm   string
	Email             *string
	PreferredLanguage string
}

// Profile is what a signed-in user may see about themselves.
type Profile struct {
	ID                string
	Username          string
	Email             *string
	PreferredLanguage string
	CreatedAt         time.Time
}

// Deps are the collaborators of UserService.
type Deps struct {
	DB        *sql.DB
	Repos     repomanager.RepositoryManager
	Policy    *password.Policy
	Hasher    *password.Hasher
	Encryptor *cryptox.FieldEncryptor
	Tokens    *auth.TokenService
	Logger    logging.Logger
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      *password.Policy
	hasher      *password.Hasher
	encryptor   *cryptox.FieldEncryptor
	tokens      *auth.TokenService
	logger      logging.Logger

	// dummyDigest is verified against when the username is unknown so that
	// both login failures cost one bcrypt comparison.
	dummyDigest string
}

func NewUserService(d Deps) (*UserService, error) {
	filler, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := d.Hasher.Hash(filler)
	if err != nil {
		return nil, fmt.Errorf("prepare login digest: %w", err)
	}

	return &UserService{
		db:          d.DB,
		repomanager: d.Repos,
		policy:      d.Policy,
		hasher:      d.Hasher,
		encryptor:   d.Encryptor,
		tokens:      d.Tokens,
		logger:      d.Logger.With("module", "users"),
		dummyDigest: dummy,
	}, nil
}

// Register validates the input, stores the new user with a hashed password
// and an encrypted email, and returns a fresh token pair.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*auth.TokenPair, error) {
	username := strings.TrimSpace(in.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if in.PasswordConfirm != "" && in.PasswordConfirm != in.Password {
		return nil, invalid("password_confirm", "passwords do not match")
	}
	if err := s.policy.Validate(in.Password); err != nil {
		return nil, err
	}

	lang, err := preferredLanguage(in.PreferredLanguage)
	if err != nil {
		return nil, err
	}

	email, err := s.sealEmail(in.Email)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Username:          username,
		PasswordHash:      digest,
		Email:             email,
		PreferredLanguage: lang,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.logger.Info(ctx, "registration rejected", "reason", "username taken")
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.tokens.IssuePair(user.ID)
}

// Login checks the username/password pair and returns a fresh token pair.
// Unknown users and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, username, pass string) (*auth.TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(pass, s.dummyDigest)
			s.logger.Info(ctx, "login failed")
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(pass, user.PasswordHash) {
		s.logger.Info(ctx, "login failed", "user_id", user.ID)
		return nil, common.ErrorUnauthorized
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, pass)
	}

	return s.tokens.IssuePair(user.ID)
}

func (s *UserService) rehash(ctx context.Context, userID, pass string) {
	digest, err := s.hasher.Hash(pass)
	if err == nil {
		err = s.repomanager.Users(s.db).UpdatePassword(ctx, userID, digest)
	}
	if err != nil {
		s.logger.Warn(ctx, "password rehash failed", "user_id", userID, "error", err.Error())
		return
	}
	s.logger.Debug(ctx, "password rehashed", "user_id", userID)
}

// Refresh exchanges a valid refresh token for a new pair. Refresh tokens are
// not stored, so the old one stays valid until it expires.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh rejected", "kind", "unknown_subject", "user_id", id.String())
			return nil, common.ErrUnknownSubject
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return s.tokens.IssuePair(user.ID)
}

// GetUserByID makes UserService usable as the gate's user lookup.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetUserByID(ctx, id)
}

// Me returns the profile of user with the email decrypted for this call only.
func (s *UserService) Me(ctx context.Context, user *models.User) (*Profile, error) {
	email, err := cryptox.DecryptField(s.encryptor, user.Email)
	if err != nil {
		s.logger.Error(ctx, "stored email cannot be decrypted", "user_id", user.ID)
		return nil, err
	}

	return &Profile{
		ID:                user.ID,
		Username:          user.Username,
		Email:             email,
		PreferredLanguage: user.PreferredLanguage,
		CreatedAt:         user.CreatedAt,
	}, nil
}

// UpdateEmail replaces the user's email, encrypting it under a fresh salt.
// A nil email clears it.
func (s *UserService) UpdateEmail(ctx context.Context, user *models.User, email *string) error {
	sealed, err := s.sealEmail(email)
	if err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).UpdateEmail(ctx, user.ID, sealed); err != nil {
		return fmt.Errorf("error updating email: %w", err)
	}

	if email != nil {
		s.logger.Info(ctx, "email updated", "user_id", user.ID, "email", logging.MaskEmail(NormalizeEmail(*email)))
	}
	return nil
}

// ChangePassword checks the current password, then validates and stores the
// new one.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if err := s.policy.Validate(next); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		stored, err := repo.GetUserByID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		if !s.hasher.Verify(current, stored.PasswordHash) {
			s.logger.Info(ctx, "password change rejected", "user_id", user.ID)
			return common.ErrorUnauthorized
		}
		if err := repo.UpdatePassword(ctx, user.ID, digest); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}

		s.logger.Info(ctx, "password changed", "user_id", user.ID)
		return nil
	})
}

// inTx runs fn in a database transaction, or directly when the service runs
// on the in-memory store.
func (s *UserService) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *UserService) sealEmail(email *string) (*cryptox.EncryptedField, error) {
	if email == nil {
		return nil, nil
	}
	normalized := NormalizeEmail(*email)
	if !ValidEmail(normalized) {
		return nil, invalid("email", "invalid email format")
	}
	return cryptox.EncryptField(s.encryptor, &normalized)
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return invalid("username", fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	}
	return nil
}

func preferredLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return models.DefaultPreferredLanguage, nil
	}
	if len(lang) > MaxLanguageLength {
		return "", invalid("preferred_language", fmt.Sprintf("preferred language must be at most %d characters", MaxLanguageLength))
	}
	return lang, nil
}

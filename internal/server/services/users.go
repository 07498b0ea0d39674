package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/cryptox"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/models"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
)

const passwordSaltSize = 16

// UsersService is the identity edge: registration and credential login.
// Passwords are stored as argon2id-derived keys with per-user salts. Login
// failures are uniform: a missing user and a wrong password both report
// common.ErrorUnauthorized.
type UsersService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	logger      logging.Logger
}

func NewUsersService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, logger logging.Logger) *UsersService {
	return &UsersService{db: db, repomanager: m, tokens: tokens, logger: logger}
}

// Register creates a new user and returns it.
func (s *UsersService) Register(ctx context.Context, username, password string) (*models.User, error) {
	salt := common.GenerateRandByteArray(passwordSaltSize)

	user := &models.User{
		Username:     username,
		Salt:         salt,
		PasswordHash: cryptox.DeriveKey([]byte(password), salt),
	}

	created, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "registered user", "user_id", created.ID)

	return created, nil
}

// Login verifies credentials and mints the first token pair.
func (s *UsersService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	derived := cryptox.DeriveKey([]byte(password), user.Salt)
	if subtle.ConstantTimeCompare(derived, user.PasswordHash) != 1 {
		return nil, common.ErrorUnauthorized
	}

	return s.tokens.Issue(ctx, user.ID)
}

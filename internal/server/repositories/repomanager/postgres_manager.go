package repomanager

import (
	"context"
	"database/sql"

	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/server/migrations"
	"github.com/centavo-app/centavo/internal/server/repositories/csrftokens"
	"github.com/centavo-app/centavo/internal/server/repositories/cursorkeys"
	"github.com/centavo-app/centavo/internal/server/repositories/ownership"
	"github.com/centavo-app/centavo/internal/server/repositories/refreshtokens"
	"github.com/centavo-app/centavo/internal/server/repositories/tokensecrets"
	"github.com/centavo-app/centavo/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) CursorKeys(db dbx.DBTX) cursorkeys.Repository {
	return cursorkeys.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) TokenSecrets(db dbx.DBTX) tokensecrets.Repository {
	return tokensecrets.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) CsrfTokens(db dbx.DBTX) csrftokens.Repository {
	return csrftokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Ownership(db dbx.DBTX) ownership.Repository {
	return ownership.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

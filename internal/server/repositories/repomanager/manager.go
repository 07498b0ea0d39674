// Package repomanager wires repository implementations to a database handle.
// Services hold a manager plus a *sql.DB and can re-bind repositories to a
// transaction via dbx.WithTx when several writes must commit together.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/server/repositories/csrftokens"
	"github.com/centavo-app/centavo/internal/server/repositories/cursorkeys"
	"github.com/centavo-app/centavo/internal/server/repositories/ownership"
	"github.com/centavo-app/centavo/internal/server/repositories/refreshtokens"
	"github.com/centavo-app/centavo/internal/server/repositories/tokensecrets"
	"github.com/centavo-app/centavo/internal/server/repositories/users"
)

// RepositoryManager constructs repositories bound to the given handle,
// which may be a *sql.DB or an open transaction.
type RepositoryManager interface {
	CursorKeys(db dbx.DBTX) cursorkeys.Repository
	TokenSecrets(db dbx.DBTX) tokensecrets.Repository
	CsrfTokens(db dbx.DBTX) csrftokens.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Users(db dbx.DBTX) users.Repository
	Ownership(db dbx.DBTX) ownership.Repository

	// RunMigrations applies pending schema migrations.
	RunMigrations(ctx context.Context, db *sql.DB) error
}

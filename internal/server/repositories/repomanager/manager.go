package repomanager

import (
	"context"
	"database/sql"

	"github.com/dvmarques/sessionauth/internal/dbx"
	"github.com/dvmarques/sessionauth/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX and
// exposes the schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// Package repomanager wires repository construction to a database handle so
// services can run the same repositories against a pool or a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dpolyakov/minimart/internal/dbx"
	"github.com/dpolyakov/minimart/internal/server/repositories/products"
	"github.com/dpolyakov/minimart/internal/server/repositories/refreshtokens"
	"github.com/dpolyakov/minimart/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Products(db dbx.DBTX) products.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}

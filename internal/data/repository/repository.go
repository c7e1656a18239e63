package repository

import (
	"marketplace-api/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	Product ProductRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(db, log),
		Product: NewProductRepository(db, log),
	}
}

// NewMemoryRepository backs users with the in-process store. Products need
// full-text search and stay unavailable without Postgres.
func NewMemoryRepository() *Repository {
	return &Repository{
		User: NewMemoryUserRepository(),
	}
}

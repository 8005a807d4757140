package catalog

import (
	"database/sql"

	"github.com/google/wire"
)

// ProvideRepository is a Wire provider function that creates a GormRepository
func ProvideRepository(db *sql.DB) (*GormRepository, error) {
	return NewGormRepository(db)
}

func ProvideJSONHandler(repo Repository) *JSONHandler {
	return NewJSONHandler(repo)
}

var Set = wire.NewSet(
	ProvideRepository,
	wire.Bind(new(Repository), new(*GormRepository)),
	ProvideJSONHandler,
)

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Repository is the read-only catalog lookup the storefront needs.
type Repository interface {
	List(ctx context.Context, category string) ([]Product, error)
}

type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps the shared connection pool with gorm and makes sure
// the products table exists.
func NewGormRepository(sqlDB *sql.DB) (*GormRepository, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	if err := db.AutoMigrate(&Product{}); err != nil {
		return nil, fmt.Errorf("failed to migrate products: %w", err)
	}

	return &GormRepository{db: db}, nil
}

func (r *GormRepository) List(ctx context.Context, category string) ([]Product, error) {
	query := r.db.WithContext(ctx).Order("title ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var products []Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	GetAll(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID string) error
}

type repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, productID string) (*Product, error) {
	var p Product
	err := r.db.GetContext(ctx, &p, getProductSQL, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *repo) GetAll(ctx context.Context) ([]Product, error) {
	var out []Product
	err := r.db.SelectContext(ctx, &out, getAllProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return out, nil
}

func (r *repo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, createProductSQL,
		p.ProductID,
		p.ProductName,
		p.LicenseType,
		p.MaxDevices,
		p.UpdatesYears,
		p.IsTeam,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, updateProductSQL,
		p.ProductName,
		p.LicenseType,
		p.MaxDevices,
		p.UpdatesYears,
		p.IsTeam,
		p.ProductID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, productID string) error {
	_, err := r.db.ExecContext(ctx, deleteProductSQL, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

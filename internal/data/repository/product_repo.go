package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace-api/internal/data/entity"
	"marketplace-api/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrProductNotFound is returned by mutations that matched no live row.
var ErrProductNotFound = errors.New("product not found or already deleted")

// ProductFilter narrows the public listing. Zero values mean "no filter".
type ProductFilter struct {
	Category  string
	Condition string
	MinPrice  *float64
	MaxPrice  *float64
	Search    string
	SortBy    string
	SortOrder string
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	FindAll(ctx context.Context, filter ProductFilter, limit, offset int) ([]*entity.Product, error)
	CountAll(ctx context.Context, filter ProductFilter) (int64, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementViews bumps the counter in place and returns the new value.
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
}

// sortColumns whitelists the sortable fields; anything else sorts by date.
var sortColumns = map[string]string{
	"createdAt":  "p.created_at",
	"created_at": "p.created_at",
	"price":      "p.price",
	"title":      "p.title",
	"views":      "p.views",
}

const productSelect = `
	SELECT p.id, p.title, p.description, p.price, p.category, p.condition,
	       p.images, p.seller_id, p.location, p.is_available, p.views, p.tags,
	       p.created_at, p.updated_at, u.name, u.email, u.phone
	FROM products p
	JOIN users u ON u.id = p.seller_id
`

type productRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewProductRepository(db database.PgxIface, log *zap.Logger) ProductRepository {
	return &productRepository{
		db:  db,
		log: log.With(zap.String("repository", "product")),
	}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var product entity.Product
	seller := &entity.Seller{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.Condition,
		&product.Images,
		&product.SellerID,
		&product.Location,
		&product.IsAvailable,
		&product.Views,
		&product.Tags,
		&product.CreatedAt,
		&product.UpdatedAt,
		&seller.Name,
		&seller.Email,
		&seller.Phone,
	)
	if err != nil {
		return nil, err
	}
	seller.ID = product.SellerID
	product.Seller = seller
	return &product, nil
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (id, title, description, price, category, condition,
		                      images, seller_id, location, is_available, views, tags,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.Price,
		product.Category,
		product.Condition,
		product.Images,
		product.SellerID,
		product.Location,
		product.IsAvailable,
		product.Views,
		product.Tags,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create product",
			zap.Error(err),
			zap.String("title", product.Title),
			zap.String("seller_id", product.SellerID.String()),
		)
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	query := productSelect + ` WHERE p.id = $1 AND p.deleted_at IS NULL`

	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find product by ID",
			zap.Error(err),
			zap.String("product_id", id.String()),
		)
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return product, nil
}

// buildFilter renders the WHERE clause shared by FindAll and CountAll.
func buildFilter(filter ProductFilter) (string, []any) {
	var where strings.Builder
	where.WriteString(" WHERE p.deleted_at IS NULL AND p.is_available = TRUE")

	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		where.WriteString(fmt.Sprintf(clause, len(args)))
	}

	if filter.Category != "" && filter.Category != "all" {
		add(" AND p.category = $%d", filter.Category)
	}
	if filter.Condition != "" {
		add(" AND p.condition = $%d", filter.Condition)
	}
	if filter.MinPrice != nil {
		add(" AND p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add(" AND p.price <= $%d", *filter.MaxPrice)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, search)
		n := len(args)
		where.WriteString(fmt.Sprintf(
			" AND (p.search_vector @@ plainto_tsquery('english', $%d) OR $%d = ANY(p.tags))", n, n))
	}

	return where.String(), args
}

func orderBy(filter ProductFilter) string {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "p.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, p.id", column, direction)
}

func (r *productRepository) FindAll(ctx context.Context, filter ProductFilter, limit, offset int) ([]*entity.Product, error) {
	where, args := buildFilter(filter)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(productSelect)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(orderBy(filter))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2))
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		r.log.Error("Failed to find products",
			zap.Error(err),
			zap.Int("offset", offset),
			zap.Int("limit", limit),
		)
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		r.log.Error("Failed to read product rows", zap.Error(err))
		return nil, err
	}

	r.log.Debug("Products found",
		zap.Int("count", len(products)),
		zap.Int("offset", offset),
		zap.Int("limit", limit),
	)

	return products, nil
}

func (r *productRepository) CountAll(ctx context.Context, filter ProductFilter) (int64, error) {
	where, args := buildFilter(filter)
	query := `SELECT COUNT(*) FROM products p` + where

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.log.Error("Failed to count products", zap.Error(err))
		return 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, nil
}

func (r *productRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID) ([]*entity.Product, error) {
	query := productSelect + ` WHERE p.seller_id = $1 AND p.deleted_at IS NULL ORDER BY p.created_at DESC, p.id`

	rows, err := r.db.Query(ctx, query, sellerID)
	if err != nil {
		r.log.Error("Failed to find seller products",
			zap.Error(err),
			zap.String("seller_id", sellerID.String()),
		)
		return nil, fmt.Errorf("failed to find seller products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]*entity.Product, error) {
	products := []*entity.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products
		SET title = $2, description = $3, price = $4, category = $5, condition = $6,
		    images = $7, location = $8, is_available = $9, tags = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.Price,
		product.Category,
		product.Condition,
		product.Images,
		product.Location,
		product.IsAvailable,
		product.Tags,
		product.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update product",
			zap.Error(err),
			zap.String("product_id", product.ID.String()),
		)
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete product",
			zap.Error(err),
			zap.String("product_id", id.String()),
		)
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	r.log.Info("Product soft deleted", zap.String("product_id", id.String()))
	return nil
}

func (r *productRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE products SET views = views + 1 WHERE id = $1 AND deleted_at IS NULL RETURNING views`

	var views int
	err := r.db.QueryRow(ctx, query, id).Scan(&views)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		r.log.Error("Failed to increment product views",
			zap.Error(err),
			zap.String("product_id", id.String()),
		)
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}

	return views, nil
}

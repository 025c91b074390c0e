package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/karthik-excrin/shootx-v2/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func NewStore(dbURL string) (*Store, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ShopIDFromDomain derives the tenant key from a myshopify domain.
func ShopIDFromDomain(domain string) string {
	return strings.TrimSuffix(domain, ".myshopify.com")
}

func (s *Store) GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	var shop models.Shop
	err := s.db.QueryRowContext(ctx, `
		SELECT shop_id, shop_domain, try_on_enabled, button_text, button_color,
		       popup_title, max_file_size, allowed_file_types, created_at, updated_at
		FROM shops
		WHERE shop_domain = $1
	`, domain).Scan(
		&shop.ShopID, &shop.ShopDomain, &shop.TryOnEnabled, &shop.ButtonText,
		&shop.ButtonColor, &shop.PopupTitle, &shop.MaxFileSize, &shop.AllowedFileTypes,
		&shop.CreatedAt, &shop.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return &shop, nil
}

// EnsureShop returns the shop row for a domain, creating it with default
// widget settings if it does not exist yet.
func (s *Store) EnsureShop(ctx context.Context, domain string) (*models.Shop, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (shop_id, shop_domain, button_text, button_color, popup_title, max_file_size, allowed_file_types)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (shop_domain) DO NOTHING
	`, ShopIDFromDomain(domain), domain,
		models.DefaultButtonText, models.DefaultButtonColor, models.DefaultPopupTitle,
		int64(models.DefaultMaxFileSize), models.DefaultAllowedFileTypes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure shop: %w", err)
	}

	return s.GetShopByDomain(ctx, domain)
}

// UpdateShopSettings applies a partial settings update and returns the
// updated row. Nil fields are left unchanged.
func (s *Store) UpdateShopSettings(ctx context.Context, domain string, req models.UpdateSettingsRequest) (*models.Shop, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shops
		SET try_on_enabled = COALESCE($2, try_on_enabled),
		    button_text = COALESCE($3, button_text),
		    button_color = COALESCE($4, button_color),
		    popup_title = COALESCE($5, popup_title),
		    max_file_size = COALESCE($6, max_file_size),
		    allowed_file_types = COALESCE($7, allowed_file_types),
		    updated_at = NOW()
		WHERE shop_domain = $1
	`, domain, req.TryOnEnabled, req.ButtonText, req.ButtonColor,
		req.PopupTitle, req.MaxFileSize, req.AllowedFileTypes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update shop settings: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	return s.GetShopByDomain(ctx, domain)
}

func (s *Store) CreateTryOnRequest(ctx context.Context, r *models.TryOnRequest) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tryon_requests (id, shop_id, product_id, product_title, product_image, customer_image, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, r.ID, r.ShopID, r.ProductID, r.ProductTitle, r.ProductImage, r.CustomerImage, r.Status,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create try-on request: %w", err)
	}

	return nil
}

func (s *Store) GetTryOnRequest(ctx context.Context, id uuid.UUID) (*models.TryOnRequest, error) {
	var r models.TryOnRequest
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, product_id, product_title, product_image, customer_image,
		       status, result_image, created_at, updated_at
		FROM tryon_requests
		WHERE id = $1
	`, id).Scan(
		&r.ID, &r.ShopID, &r.ProductID, &r.ProductTitle, &r.ProductImage,
		&r.CustomerImage, &r.Status, &r.ResultImage, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get try-on request: %w", err)
	}

	return &r, nil
}

// CompleteTryOnRequest records the single terminal write for a successful
// generation. The status guard keeps the transition one-way: a request that
// already reached a terminal state is left untouched and false is returned.
func (s *Store) CompleteTryOnRequest(ctx context.Context, id uuid.UUID, resultImage string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tryon_requests
		SET status = 'completed', result_image = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, id, resultImage)
	if err != nil {
		return false, fmt.Errorf("failed to complete try-on request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}

	return rows > 0, nil
}

// FailTryOnRequest records the terminal write for a failed generation.
// Same one-way guard as CompleteTryOnRequest; no result is ever set.
func (s *Store) FailTryOnRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tryon_requests
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to fail try-on request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}

	return rows > 0, nil
}

// FailStaleProcessing marks requests stuck in processing longer than maxAge
// as failed. Covers jobs whose background task was lost to a restart.
func (s *Store) FailStaleProcessing(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tryon_requests
		SET status = 'failed', updated_at = NOW()
		WHERE status = 'processing' AND created_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale requests: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) CountRequests(ctx context.Context, shopID, status string) (int64, error) {
	query := `SELECT COUNT(*) FROM tryon_requests WHERE shop_id = $1`
	args := []interface{}{shopID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}

	return count, nil
}

func (s *Store) RecentRequests(ctx context.Context, shopID string, limit int) ([]models.TryOnRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, product_id, product_title, product_image, customer_image,
		       status, result_image, created_at, updated_at
		FROM tryon_requests
		WHERE shop_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent requests: %w", err)
	}
	defer rows.Close()

	var requests []models.TryOnRequest
	for rows.Next() {
		var r models.TryOnRequest
		err := rows.Scan(
			&r.ID, &r.ShopID, &r.ProductID, &r.ProductTitle, &r.ProductImage,
			&r.CustomerImage, &r.Status, &r.ResultImage, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, r)
	}

	return requests, rows.Err()
}

func (s *Store) TopProducts(ctx context.Context, shopID string, limit int) ([]models.ProductCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, MAX(product_title), COUNT(*) AS requests
		FROM tryon_requests
		WHERE shop_id = $1
		GROUP BY product_id
		ORDER BY requests DESC
		LIMIT $2
	`, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top products: %w", err)
	}
	defer rows.Close()

	var products []models.ProductCount
	for rows.Next() {
		var p models.ProductCount
		if err := rows.Scan(&p.ProductID, &p.ProductTitle, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/shopspring/decimal"
)

type SearchIndex interface {
	IndexProduct(ctx context.Context, doc es.ProductDoc) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Cache  *cache.Cache
	Index  SearchIndex
	Events Publisher
}

type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uint
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	c := &models.Category{Name: name}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: category already exists", ErrConflict)
		}
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, repo.ErrReferenced) {
			return fmt.Errorf("%w: category still has products", ErrConflict)
		}
		return mapRepoErr(err, "category")
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter) (int64, []repo.ProductView, error) {
	if f.Sort == "" {
		f.Sort = "new"
	}
	if !repo.ValidProductSort(f.Sort) {
		return 0, nil, fmt.Errorf("%w: unknown sort %q", ErrValidation, f.Sort)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return 0, nil, fmt.Errorf("%w: min_price is greater than max_price", ErrValidation)
	}
	return s.Repo.ListProducts(ctx, f)
}

// GetProduct reads through the product cache.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*repo.ProductView, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.get_product")
	key := cache.ProductKey(id)

	var cached repo.ProductView
	hit, err := s.Cache.Get(ctx, key, &cached)
	if err != nil {
		l.Warn("cache_read_failed", "key", key, "error", err)
	}
	if hit {
		return &cached, nil
	}

	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	if err := s.Cache.Set(ctx, key, p); err != nil {
		l.Warn("cache_write_failed", "key", key, "error", err)
	}
	return p, nil
}

// Search uses the search index when available and falls back to the
// database filter otherwise.
func (s *CatalogService) Search(ctx context.Context, q string, offset, limit int) (int64, []repo.ProductView, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("%w: q is required", ErrValidation)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Repo.ProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		l.Warn("search_index_failed", "error", err)
	}
	return s.Repo.ListProducts(ctx, repo.ProductFilter{Q: q, Sort: "name_asc", Offset: offset, Limit: limit})
}

func validateProduct(in ProductInput, create bool) error {
	if create && (in.Name == nil || in.Price == nil || in.CategoryID == nil) {
		return fmt.Errorf("%w: name, price and category_id are required", ErrValidation)
	}
	if in.Name != nil {
		if n := len(strings.TrimSpace(*in.Name)); n < 2 || n > 100 {
			return fmt.Errorf("%w: name must be 2..100 characters", ErrValidation)
		}
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than 0", ErrValidation)
	}
	if in.Stock != nil && *in.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	ok, err := s.Repo.CategoryExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: category %d does not exist", ErrValidation, *id)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in, true); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:       strings.TrimSpace(*in.Name),
		Price:      in.Price.Round(2),
		CategoryID: in.CategoryID,
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.syncIndex(ctx, p)
	publish(ctx, s.Events, mykafka.TopicProducts, p.ID, "product_created", p)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in, false); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = in.Price.Round(2)
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *in.CategoryID
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	p, err := s.Repo.UpdateProduct(ctx, id, fields)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}

	s.invalidate(ctx, id)
	s.syncIndex(ctx, p)
	publish(ctx, s.Events, mykafka.TopicProducts, p.ID, "product_updated", p)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repo.ErrReferenced) {
			return fmt.Errorf("%w: product is part of existing orders", ErrConflict)
		}
		return mapRepoErr(err, "product")
	}

	s.invalidate(ctx, id)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_index_delete_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProducts, id, "product_deleted", map[string]any{"product_id": id})
	return nil
}

// Invalidate drops cached copies of products whose stock changed elsewhere.
func (s *CatalogService) Invalidate(ctx context.Context, ids ...uint) {
	for _, id := range ids {
		s.invalidate(ctx, id)
	}
}

func (s *CatalogService) invalidate(ctx context.Context, id uint) {
	if err := s.Cache.Delete(ctx, cache.ProductKey(id)); err != nil {
		logging.FromContext(ctx).Warn("cache_delete_failed", "product_id", id, "error", err)
	}
}

func (s *CatalogService) syncIndex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	doc := es.ProductDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
	}
	if err := s.Index.IndexProduct(ctx, doc); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

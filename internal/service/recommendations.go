package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/repo"
)

const (
	recCategories     = 3
	recUserLimit      = 12
	recFallbackLimit  = 10
	recSameCategory   = 8
	BasedOnCategories = "user_categories"
	BasedOnNewest     = "global_newest"
)

type RecommendationService struct {
	Repo *repo.GormRepo
}

type UserRecommendations struct {
	BasedOn    string `json:"basedOn"`
	Categories []uint `json:"categories,omitempty"`
	Items      any    `json:"items"`
}

type ProductRecommendations struct {
	ProductID  uint               `json:"product_id"`
	CategoryID *uint              `json:"category_id"`
	Items      []repo.ProductView `json:"items"`
}

// ForUser prefers categories the user ordered from, then those in the
// cart, then the newest products overall.
func (s *RecommendationService) ForUser(ctx context.Context, userID uint) (*UserRecommendations, error) {
	cats, err := s.Repo.TopOrderedCategories(ctx, userID, recCategories)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		if cats, err = s.Repo.CartCategories(ctx, userID, recCategories); err != nil {
			return nil, err
		}
	}

	if len(cats) == 0 {
		items, err := s.Repo.NewestInStock(ctx, recFallbackLimit)
		if err != nil {
			return nil, err
		}
		return &UserRecommendations{BasedOn: BasedOnNewest, Items: items}, nil
	}

	items, err := s.Repo.PopularInCategories(ctx, cats, recUserLimit)
	if err != nil {
		return nil, err
	}
	return &UserRecommendations{BasedOn: BasedOnCategories, Categories: cats, Items: items}, nil
}

func (s *RecommendationService) ForProduct(ctx context.Context, productID uint) (*ProductRecommendations, error) {
	base, items, err := s.Repo.SameCategory(ctx, productID, recSameCategory)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	return &ProductRecommendations{ProductID: base.ID, CategoryID: base.CategoryID, Items: items}, nil
}

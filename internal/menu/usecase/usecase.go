package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/cache"
	catdto "github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/menu"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	prodto "github.com/fekuna/omnipos-qrmenu/internal/product/dto"
	"go.uber.org/zap"
)

// CacheKey holds the assembled menu. Table menus reuse it and attach the
// table on the way out.
const CacheKey = "qrmenu:menu:v1"

type menuUseCase struct {
	categories menu.CategoryLister
	products   menu.ProductLister
	tables     menu.TableFinder
	cache      *cache.RedisClient
	ttl        time.Duration
	logger     logger.ZapLogger
}

// NewMenuUseCase builds the public menu. A nil cache disables caching.
func NewMenuUseCase(
	categories menu.CategoryLister,
	products menu.ProductLister,
	tables menu.TableFinder,
	redis *cache.RedisClient,
	ttl time.Duration,
	log logger.ZapLogger,
) menu.UseCase {
	return &menuUseCase{
		categories: categories,
		products:   products,
		tables:     tables,
		cache:      redis,
		ttl:        ttl,
		logger:     log,
	}
}

func (uc *menuUseCase) GetMenu(ctx context.Context) (*menu.Menu, error) {
	if uc.cache != nil && uc.ttl > 0 {
		var cached menu.Menu
		found, err := uc.cache.GetJSON(ctx, CacheKey, &cached)
		if err != nil {
			uc.logger.Warn("menu cache read failed", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	m, err := uc.build(ctx)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && uc.ttl > 0 {
		if err := uc.cache.SetJSON(ctx, CacheKey, m, uc.ttl); err != nil {
			uc.logger.Warn("menu cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func (uc *menuUseCase) GetTableMenu(ctx context.Context, name string) (*menu.Menu, error) {
	table, err := uc.tables.GetTableByName(ctx, name)
	if err != nil {
		return nil, err
	}

	m, err := uc.GetMenu(ctx)
	if err != nil {
		return nil, err
	}
	out := *m
	out.Table = table
	return &out, nil
}

// build lists active categories in order, each with its active products.
// Products of inactive categories are hidden with them.
func (uc *menuUseCase) build(ctx context.Context) (*menu.Menu, error) {
	active := true
	cats, err := uc.categories.FindAll(ctx, &catdto.CategoryFilters{IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("listing menu categories: %w", err)
	}
	products, err := uc.products.FindAll(ctx, &prodto.ProductFilters{IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("listing menu products: %w", err)
	}

	byCategory := make(map[int64][]model.Product, len(cats))
	uncategorized := []model.Product{}
	for _, p := range products {
		if p.CategoryID == nil {
			uncategorized = append(uncategorized, p)
			continue
		}
		byCategory[*p.CategoryID] = append(byCategory[*p.CategoryID], p)
	}

	sections := make([]menu.Section, 0, len(cats))
	for _, c := range cats {
		items := byCategory[c.ID]
		if items == nil {
			items = []model.Product{}
		}
		sections = append(sections, menu.Section{Category: c, Products: items})
	}

	return &menu.Menu{
		Categories:    sections,
		Uncategorized: uncategorized,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

package cache

import (
	"context"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

const (
	categoriesKey = "categories"
	typesKey      = "transaction_types"
)

// Registry serves category and transaction type listings through a cache.
type Registry struct {
	categories ports.CategoryReader
	types      ports.TypeReader
	catCache   Cache[[]core.Category]
	typeCache  Cache[[]core.TransactionType]
}

var (
	_ ports.CategoryReader = (*Registry)(nil)
	_ ports.TypeReader     = (*Registry)(nil)
)

func NewRegistry(categories ports.CategoryReader, types ports.TypeReader,
	catCache Cache[[]core.Category], typeCache Cache[[]core.TransactionType]) *Registry {
	return &Registry{
		categories: categories,
		types:      types,
		catCache:   catCache,
		typeCache:  typeCache,
	}
}

func (r *Registry) ListCategories(ctx context.Context) ([]core.Category, error) {
	return cached(ctx, r.catCache, categoriesKey, r.categories.ListCategories)
}

func (r *Registry) ListTransactionTypes(ctx context.Context) ([]core.TransactionType, error) {
	return cached(ctx, r.typeCache, typesKey, r.types.ListTransactionTypes)
}

// Invalidate drops both cached listings.
func (r *Registry) Invalidate() {
	r.catCache.Delete(categoriesKey)
	r.typeCache.Delete(typesKey)
}

func cached[T any](ctx context.Context, c Cache[[]T], key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

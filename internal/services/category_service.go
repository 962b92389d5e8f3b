package services

import (
	"context"
	"fmt"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/ports"
)

// Invalidator drops cached registry listings.
type Invalidator interface {
	Invalidate()
}

// CategoryService maintains the category registry and keeps the cached
// listing in step with it.
type CategoryService struct {
	store  ports.CategoryWriter
	cache  Invalidator
	logger *log.Logger
}

// NewCategoryService builds the service. cache may be nil when listings are
// read straight from the store.
func NewCategoryService(store ports.CategoryWriter, cache Invalidator, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{
		store:  store,
		cache:  cache,
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(ctx, created.ID, log.OpCreate)
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(ctx, updated.ID, log.OpUpdate)
	return updated, nil
}

// Delete removes a category no transaction uses.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(ctx, id, log.OpDelete)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context, id, op string) {
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.logger.InfoContext(ctx, "Category registry changed", log.FieldCategoryID, id, log.FieldOperation, op)
}

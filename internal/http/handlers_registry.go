package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/log"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.registry.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(map[string]any{"categories": nonNil(categories)}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCategory(NewRequestBodyParser(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	created, err := s.categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		log.FieldCategoryID, created.ID, log.FieldOperation, log.OpCreate)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+created.ID).
		Body(created).
		Write(w)
}

// handleUpdateCategory relabels a category. The id comes from the path.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCategory(NewRequestBodyParser(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	c.ID = r.PathValue("id")
	updated, err := s.categories.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleTransactionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.registry.ListTransactionTypes(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(map[string]any{"transaction_types": nonNil(types)}).Write(w)
}

// FormOptions is everything a client needs to build a draft form.
type FormOptions struct {
	Accounts         []engine.EligibleAccount `json:"accounts"`
	Categories       []core.Category          `json:"categories"`
	TransactionTypes []core.TransactionType   `json:"transaction_types"`
}

// handleFormOptions loads eligible accounts and both registries concurrently.
func (s *Server) handleFormOptions(w http.ResponseWriter, r *http.Request) {
	var opts FormOptions
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		opts.Accounts, err = s.accounts.Eligible(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		opts.Categories, err = s.registry.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		opts.TransactionTypes, err = s.registry.ListTransactionTypes(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err, nil)
		return
	}

	opts.Accounts = nonNil(opts.Accounts)
	opts.Categories = nonNil(opts.Categories)
	opts.TransactionTypes = nonNil(opts.TransactionTypes)
	NewJSONResponse().Body(opts).Write(w)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

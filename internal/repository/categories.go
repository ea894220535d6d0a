package repository

import (
	"context"

	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type CategoriesRepository interface {
	ListActive(ctx context.Context) ([]model.CategoryRef, error)
	// UnsubscribedIDs resolves the supplied guids to active category ids,
	// restricted to categories the customer has no subscription row for at
	// all — soft-deleted rows count as subscribed and are never recreated.
	UnsubscribedIDs(ctx context.Context, tx *sqlx.Tx, customerID int64, guids []string) ([]int64, error)
}

type CategoriesRepositoryImpl struct {
	db *sqlx.DB
}

func NewCategoriesRepository(db *sqlx.DB) *CategoriesRepositoryImpl {
	return &CategoriesRepositoryImpl{db: db}
}

var _ CategoriesRepository = (*CategoriesRepositoryImpl)(nil)

func (r *CategoriesRepositoryImpl) ListActive(ctx context.Context) ([]model.CategoryRef, error) {
	var cats []model.CategoryRef
	err := r.db.SelectContext(ctx, &cats, `
		SELECT guid, name FROM categories
		 WHERE deleted_at IS NULL
		 ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *CategoriesRepositoryImpl) UnsubscribedIDs(ctx context.Context, tx *sqlx.Tx, customerID int64, guids []string) ([]int64, error) {
	if len(guids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT c.id
		  FROM categories c
		 WHERE c.deleted_at IS NULL
		   AND c.guid IN (?)
		   AND NOT EXISTS (
		       SELECT 1 FROM subscriptions s
		        WHERE s.customer_id = ? AND s.category_id = c.id
		   )
		 ORDER BY c.id
	`, guids, customerID)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	var ids []int64
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

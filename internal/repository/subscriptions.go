package repository

import (
	"context"
	"strings"

	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// ListPageParams describes one bounded fetch of the subscription list.
// Limit is the raw fetch size; the caller includes its lookahead row.
type ListPageParams struct {
	CategoryGUIDs []string
	Cursor        *int64
	Direction     model.Direction
	Limit         int
}

// NewSubscription is one row of a bulk insert.
type NewSubscription struct {
	GUID       string
	CategoryID int64
}

type SubscriptionsRepository interface {
	ListPage(ctx context.Context, p ListPageParams) ([]model.SubscriberRow, error)
	BulkInsert(ctx context.Context, tx *sqlx.Tx, customerID int64, rows []NewSubscription) error
}

type SubscriptionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubscriptionsRepository(db *sqlx.DB) *SubscriptionsRepositoryImpl {
	return &SubscriptionsRepositoryImpl{db: db}
}

var _ SubscriptionsRepository = (*SubscriptionsRepositoryImpl)(nil)

// ListPage fetches up to p.Limit customer groups over active subscriptions
// joined to active customers and categories, keyed and ordered by customer
// id. Backward pages come back descending; the service restores ascending
// order before trimming.
func (r *SubscriptionsRepositoryImpl) ListPage(ctx context.Context, p ListPageParams) ([]model.SubscriberRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT c.id AS customer_id,
		       c.work_email,
		       c.first_name,
		       c.last_name,
		       GROUP_CONCAT(cat.name ORDER BY s.id SEPARATOR ',') AS category_names
		  FROM subscriptions s
		  JOIN customers c ON c.id = s.customer_id AND c.deleted_at IS NULL
		  JOIN categories cat ON cat.id = s.category_id AND cat.deleted_at IS NULL
		 WHERE s.deleted_at IS NULL`)

	args := make([]any, 0, 3)
	if len(p.CategoryGUIDs) > 0 {
		sb.WriteString(" AND cat.guid IN (?)")
		args = append(args, p.CategoryGUIDs)
	}
	if p.Cursor != nil {
		if p.Direction == model.DirectionBackward {
			sb.WriteString(" AND c.id < ?")
		} else {
			sb.WriteString(" AND c.id > ?")
		}
		args = append(args, *p.Cursor)
	}

	sb.WriteString(" GROUP BY c.id, c.work_email, c.first_name, c.last_name")
	if p.Direction == model.DirectionBackward {
		sb.WriteString(" ORDER BY c.id DESC")
	} else {
		sb.WriteString(" ORDER BY c.id ASC")
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, p.Limit)

	query, args, err := sqlx.In(sb.String(), args...)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []model.SubscriberRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// BulkInsert writes one subscription row per category using a single
// multi-VALUES statement.
func (r *SubscriptionsRepositoryImpl) BulkInsert(ctx context.Context, tx *sqlx.Tx, customerID int64, rows []NewSubscription) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*3)

	sb.WriteString(`INSERT INTO subscriptions (guid, customer_id, category_id, created_at, updated_at) VALUES `)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, NOW(), NOW())")
		args = append(args, row.GUID, customerID, row.CategoryID)
	}

	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

package repository

import (
	"context"
	"database/sql"

	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// CustomersRepository defines persistence for the customers table. All
// methods run on the caller's transaction: customer resolution is only
// meaningful inside the creation workflow's tx.
type CustomersRepository interface {
	GetActiveByEmail(ctx context.Context, tx *sqlx.Tx, email string) (*model.Customer, error)
	GetActiveByEmailForUpdate(ctx context.Context, tx *sqlx.Tx, email string) (*model.Customer, error)
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) (int64, error)
}

type CustomersRepositoryImpl struct{}

func NewCustomersRepository() *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerByEmailQuery = `
	SELECT id, guid, first_name, last_name, work_email, deleted_at, created_at, updated_at
	  FROM customers
	 WHERE work_email = ? AND deleted_at IS NULL LIMIT 1
`

func (r *CustomersRepositoryImpl) GetActiveByEmail(ctx context.Context, tx *sqlx.Tx, email string) (*model.Customer, error) {
	var c model.Customer
	err := tx.GetContext(ctx, &c, customerByEmailQuery, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveByEmailForUpdate is a locking read: unlike a plain SELECT under
// REPEATABLE READ it observes a row committed by a concurrent transaction,
// which is what the duplicate-email retry needs.
func (r *CustomersRepositoryImpl) GetActiveByEmailForUpdate(ctx context.Context, tx *sqlx.Tx, email string) (*model.Customer, error) {
	var c model.Customer
	err := tx.GetContext(ctx, &c, customerByEmailQuery+" FOR UPDATE", email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Customer) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO customers (guid, first_name, last_name, work_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
	`, c.GUID, c.FirstName, c.LastName, c.WorkEmail)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

package model

import "time"

// Customer is the DB entity persisted in the customers table.
// work_email is unique store-wide, soft-deleted rows included, so a
// deleted customer's email can never be reused.
type Customer struct {
	ID        int64      `db:"id"`
	GUID      string     `db:"guid"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	WorkEmail string     `db:"work_email"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (c Customer) Deleted() bool { return c.DeletedAt != nil }

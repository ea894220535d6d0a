package model

import "time"

// Subscription links one customer to one category. The pair
// (customer_id, category_id) is unique across ALL rows, active or not:
// a soft-deleted subscription is never recreated.
type Subscription struct {
	ID         int64      `db:"id"`
	GUID       string     `db:"guid"`
	CustomerID int64      `db:"customer_id"`
	CategoryID int64      `db:"category_id"`
	DeletedAt  *time.Time `db:"deleted_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (s Subscription) Deleted() bool { return s.DeletedAt != nil }

// SubscriberRow is one page row of the list view: a customer grouped with
// the names of the categories they are subscribed to (within the filter,
// when one is applied). CategoryNames is the raw GROUP_CONCAT value.
type SubscriberRow struct {
	CustomerID    int64  `db:"customer_id"`
	WorkEmail     string `db:"work_email"`
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	CategoryNames string `db:"category_names"`
}

package model

import "time"

// Category is a newsletter topic. Seeded out of band and read-only at runtime.
type Category struct {
	ID        int64      `db:"id"`
	GUID      string     `db:"guid"`
	Name      string     `db:"name"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (c Category) Deleted() bool { return c.DeletedAt != nil }

// CategoryRef is the public shape of a category: stable guid plus display name.
type CategoryRef struct {
	GUID string `db:"guid" json:"guid"`
	Name string `db:"name" json:"name"`
}

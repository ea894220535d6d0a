package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/driftlab/newsletter-service/internal/metrics"
	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/driftlab/newsletter-service/internal/repository"
	"github.com/driftlab/newsletter-service/internal/util"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidLimit     = errors.New("limit must be a positive integer")
	ErrInvalidDirection = errors.New("direction must either be forward or backward")
	ErrInvalidFilter    = errors.New("category_guids must be a list of non-empty strings")
	ErrInvalidEmail     = errors.New("work_email must be a valid email address")
	ErrMissingName      = errors.New("first_name and last_name are required")
	ErrEmailUnavailable = errors.New("work email is not available")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s has the local@domain shape accepted on create.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// Service implements the subscription list view and the idempotent
// creation workflow over one relational store.
type Service struct {
	db            *sqlx.DB
	customers     repository.CustomersRepository
	categories    repository.CategoriesRepository
	subscriptions repository.SubscriptionsRepository
	outbox        repository.OutboxRepository

	topic string // outbox events published here by the relay
}

// New constructs the subscription service.
func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	categoriesRepo repository.CategoriesRepository,
	subscriptionsRepo repository.SubscriptionsRepository,
	outboxRepo repository.OutboxRepository,
	topic string,
) *Service {
	return &Service{
		db:            db,
		customers:     customersRepo,
		categories:    categoriesRepo,
		subscriptions: subscriptionsRepo,
		outbox:        outboxRepo,
		topic:         topic,
	}
}

// ListOptions are the four recognized list parameters. Direction defaults
// to forward; a nil Cursor means the first page.
type ListOptions struct {
	CategoryGUIDs []string
	Cursor        *int64
	Direction     model.Direction
	Limit         int
}

// Subscriber is one page row: a customer with the names of the categories
// they are subscribed to (within the filter when one is applied).
type Subscriber struct {
	WorkEmail     string   `json:"work_email"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	CategoryNames []string `json:"category_names"`
}

// Page is an ascending-ordered slice of the list view with boundary cursors.
type Page struct {
	Subscriptions  []Subscriber `json:"subscriptions"`
	PreviousCursor *int64       `json:"previous_cursor"`
	NextCursor     *int64       `json:"next_cursor"`
	HasMore        bool         `json:"has_more"`
}

// List returns one page of active subscriptions grouped per customer,
// ordered ascending by customer id regardless of travel direction.
// It fetches limit+1 rows; the extra row only feeds HasMore.
func (s *Service) List(ctx context.Context, opts ListOptions) (Page, error) {
	if opts.Limit <= 0 {
		return Page{}, ErrInvalidLimit
	}
	dir := opts.Direction
	if dir == "" {
		dir = model.DirectionForward
	}
	if !dir.Valid() {
		return Page{}, ErrInvalidDirection
	}
	for _, g := range opts.CategoryGUIDs {
		if strings.TrimSpace(g) == "" {
			return Page{}, ErrInvalidFilter
		}
	}

	rows, err := s.subscriptions.ListPage(ctx, repository.ListPageParams{
		CategoryGUIDs: opts.CategoryGUIDs,
		Cursor:        opts.Cursor,
		Direction:     dir,
		Limit:         opts.Limit + 1,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list subscriptions: %w", err)
	}

	metrics.ListPages.WithLabelValues(dir.String()).Inc()

	return buildPage(rows, opts.Limit, dir), nil
}

// buildPage reshapes a raw limit+1 fetch into the final page. Backward
// fetches arrive descending and are reversed back to ascending before the
// trim, so the lookahead row is the first (lowest-key) one and gets dropped;
// forward fetches simply keep the first limit rows.
func buildPage(rows []model.SubscriberRow, limit int, dir model.Direction) Page {
	hasMore := len(rows) > limit

	if dir == model.DirectionBackward {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		if hasMore {
			rows = rows[1:]
		}
	} else if hasMore {
		rows = rows[:limit]
	}

	page := Page{
		Subscriptions: make([]Subscriber, 0, len(rows)),
		HasMore:       hasMore,
	}
	for _, r := range rows {
		var names []string
		if r.CategoryNames != "" {
			names = strings.Split(r.CategoryNames, ",")
		} else {
			names = []string{}
		}
		page.Subscriptions = append(page.Subscriptions, Subscriber{
			WorkEmail:     r.WorkEmail,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			CategoryNames: names,
		})
	}

	if len(rows) > 0 {
		first := rows[0].CustomerID
		last := rows[len(rows)-1].CustomerID
		page.PreviousCursor = &first
		page.NextCursor = &last
	}

	return page
}

// CreateParams is the creation payload. Names apply only when the customer
// does not exist yet (first writer wins).
type CreateParams struct {
	WorkEmail     string
	FirstName     string
	LastName      string
	CategoryGUIDs []string
}

// Create resolves or creates the customer by work email and inserts one
// subscription row per not-yet-subscribed category, all in one transaction.
// An empty category list is a no-op. If nothing remains to insert the whole
// transaction is rolled back so no orphan customer row survives.
func (s *Service) Create(ctx context.Context, p CreateParams) error {
	if len(p.CategoryGUIDs) == 0 {
		return nil
	}
	if !ValidEmail(p.WorkEmail) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return ErrMissingName
	}
	for _, g := range p.CategoryGUIDs {
		if strings.TrimSpace(g) == "" {
			return ErrInvalidFilter
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cust, err := s.resolveCustomer(ctx, tx, p)
	if err != nil {
		return err
	}

	categoryIDs, err := s.categories.UnsubscribedIDs(ctx, tx, cust.ID, p.CategoryGUIDs)
	if err != nil {
		return fmt.Errorf("resolve categories: %w", err)
	}
	if len(categoryIDs) == 0 {
		// Nothing to insert: roll back so a customer created above with zero
		// resulting subscriptions is not kept.
		_ = tx.Rollback()
		return nil
	}

	rows := make([]repository.NewSubscription, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, repository.NewSubscription{GUID: util.NewGUID(), CategoryID: id})
	}
	if err := s.subscriptions.BulkInsert(ctx, tx, cust.ID, rows); err != nil {
		return fmt.Errorf("insert subscriptions: %w", err)
	}

	payload, err := json.Marshal(model.SubscriptionEvent{
		EventID:       util.NewGUID(),
		CustomerGUID:  cust.GUID,
		WorkEmail:     cust.WorkEmail,
		CategoryGUIDs: p.CategoryGUIDs,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.outbox.Insert(ctx, tx, "subscription", cust.GUID, s.topic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	metrics.SubscriptionsCreated.Add(float64(len(rows)))

	return nil
}

func (s *Service) resolveCustomer(ctx context.Context, tx *sqlx.Tx, p CreateParams) (*model.Customer, error) {
	cust, err := s.customers.GetActiveByEmail(ctx, tx, p.WorkEmail)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if cust != nil {
		return cust, nil
	}

	created := model.Customer{
		GUID:      util.NewGUID(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		WorkEmail: p.WorkEmail,
	}
	id, err := s.customers.Insert(ctx, tx, created)
	if err == nil {
		created.ID = id
		return &created, nil
	}
	if !isDuplicateEntry(err) {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	// Lost the first-subscription race: another request committed this email
	// between our lookup and insert. Re-resolve with a locking read.
	cust, rerr := s.customers.GetActiveByEmailForUpdate(ctx, tx, p.WorkEmail)
	if rerr != nil {
		return nil, fmt.Errorf("refetch customer: %w", rerr)
	}
	if cust == nil {
		// The unique index is held by a soft-deleted customer. Deleted
		// emails are never resurrected.
		return nil, ErrEmailUnavailable
	}
	return cust, nil
}

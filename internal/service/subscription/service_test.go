package subscription

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/driftlab/newsletter-service/internal/model"
	"github.com/driftlab/newsletter-service/internal/repository"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "newsletter.subscription.created"

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dbx := sqlx.NewDb(mockDB, "mysql")
	svc := New(
		dbx,
		repository.NewCustomersRepository(),
		repository.NewCategoriesRepository(dbx),
		repository.NewSubscriptionsRepository(dbx),
		repository.NewOutboxRepository(dbx),
		testTopic,
	)
	return svc, mock
}

func customerColumns() []string {
	return []string{"id", "guid", "first_name", "last_name", "work_email", "deleted_at", "created_at", "updated_at"}
}

func subscriberColumns() []string {
	return []string{"customer_id", "work_email", "first_name", "last_name", "category_names"}
}

func TestListRejectsInvalidOptions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, ListOptions{Limit: 0})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.List(ctx, ListOptions{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.List(ctx, ListOptions{Limit: 5, Direction: model.Direction("sideways")})
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = svc.List(ctx, ListOptions{Limit: 5, CategoryGUIDs: []string{"ok", "  "}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListFirstPage(t *testing.T) {
	svc, mock := newTestService(t)

	rows := sqlmock.NewRows(subscriberColumns()).
		AddRow(int64(1), "a@example.com", "Ada", "Lovelace", "Product updates,Case studies").
		AddRow(int64(2), "b@example.com", "Bob", "Example", "Case studies").
		AddRow(int64(3), "c@example.com", "Cia", "Example", "Industry news").
		AddRow(int64(4), "d@example.com", "Dan", "Example", "Industry news")

	// no filter, no cursor: only the lookahead limit is bound
	mock.ExpectQuery("SELECT c.id AS customer_id").
		WithArgs(4).
		WillReturnRows(rows)

	page, err := svc.List(context.Background(), ListOptions{Limit: 3, Direction: model.DirectionForward})
	require.NoError(t, err)

	require.Len(t, page.Subscriptions, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(1), *page.PreviousCursor)
	assert.Equal(t, int64(3), *page.NextCursor)
	assert.Equal(t, "a@example.com", page.Subscriptions[0].WorkEmail)
	assert.Equal(t, []string{"Product updates", "Case studies"}, page.Subscriptions[0].CategoryNames)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFilteredBackward(t *testing.T) {
	svc, mock := newTestService(t)

	rows := sqlmock.NewRows(subscriberColumns()).
		AddRow(int64(3), "c@example.com", "Cia", "Example", "Industry news").
		AddRow(int64(2), "b@example.com", "Bob", "Example", "Industry news")

	mock.ExpectQuery(`c\.id < \?`).
		WithArgs("cat-news", int64(4), 3).
		WillReturnRows(rows)

	cursor := int64(4)
	page, err := svc.List(context.Background(), ListOptions{
		CategoryGUIDs: []string{"cat-news"},
		Cursor:        &cursor,
		Direction:     model.DirectionBackward,
		Limit:         2,
	})
	require.NoError(t, err)

	require.Len(t, page.Subscriptions, 2)
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(2), *page.PreviousCursor)
	assert.Equal(t, int64(3), *page.NextCursor)
	// ascending order regardless of travel direction
	assert.Equal(t, "b@example.com", page.Subscriptions[0].WorkEmail)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmptyCategoryListIsNoop(t *testing.T) {
	svc, mock := newTestService(t)

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail: "a@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsMalformedPayload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, CreateParams{
		WorkEmail: "not-an-email", FirstName: "A", LastName: "B",
		CategoryGUIDs: []string{"g"},
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	err = svc.Create(ctx, CreateParams{
		WorkEmail: "a@example.com", FirstName: "", LastName: "B",
		CategoryGUIDs: []string{"g"},
	})
	assert.ErrorIs(t, err, ErrMissingName)

	err = svc.Create(ctx, CreateParams{
		WorkEmail: "a@example.com", FirstName: "A", LastName: "B",
		CategoryGUIDs: []string{"g", ""},
	})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCreateNewCustomer(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("new@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO customers").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery("FROM categories").
		WithArgs("cat-a", "cat-b", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(5)))
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO outbox").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "new@example.com",
		FirstName:     "New",
		LastName:      "Customer",
		CategoryGUIDs: []string{"cat-a", "cat-b"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExistingCustomerOnlyMissingLinks(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(customerColumns()).
			AddRow(int64(2), "cust-guid", "Ada", "Lovelace", "ada@example.com", nil, now, now))
	// already subscribed to cat-a: only cat-b resolves
	mock.ExpectQuery("FROM categories").
		WithArgs("cat-a", "cat-b", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "ada@example.com",
		FirstName:     "Ignored",
		LastName:      "Names",
		CategoryGUIDs: []string{"cat-a", "cat-b"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRollsBackWhenNothingToInsert(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("new@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO customers").
		WillReturnResult(sqlmock.NewResult(7, 1))
	// none of the guids resolve: the fresh customer must not survive
	mock.ExpectQuery("FROM categories").
		WithArgs("nope", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "new@example.com",
		FirstName:     "New",
		LastName:      "Customer",
		CategoryGUIDs: []string{"nope"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecoversDuplicateEmailRace(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("race@example.com").
		WillReturnError(sql.ErrNoRows)
	// a concurrent request won the insert
	mock.ExpectExec("INSERT INTO customers").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("race@example.com").
		WillReturnRows(sqlmock.NewRows(customerColumns()).
			AddRow(int64(9), "winner-guid", "First", "Writer", "race@example.com", nil, now, now))
	mock.ExpectQuery("FROM categories").
		WithArgs("cat-a", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "race@example.com",
		FirstName:     "Second",
		LastName:      "Writer",
		CategoryGUIDs: []string{"cat-a"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFailsWhenEmailHeldBySoftDeletedCustomer(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("gone@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO customers").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	// no active customer holds the email: it belongs to a soft-deleted row
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("gone@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "gone@example.com",
		FirstName:     "Any",
		LastName:      "One",
		CategoryGUIDs: []string{"cat-a"},
	})
	assert.ErrorIs(t, err, ErrEmailUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSurfacesStoreFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, guid").
		WithArgs("a@example.com").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := svc.Create(context.Background(), CreateParams{
		WorkEmail:     "a@example.com",
		FirstName:     "A",
		LastName:      "B",
		CategoryGUIDs: []string{"cat-a"},
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

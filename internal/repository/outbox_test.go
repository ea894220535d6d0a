package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxInsertOpensOwnTxWhenNil(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewOutboxRepository(dbx)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs("subscription", "cust-guid", "newsletter.subscription.created", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Insert(context.Background(), nil, "subscription", "cust-guid", "newsletter.subscription.created", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxFetchUnpublished(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewOutboxRepository(dbx)

	now := time.Now()
	mock.ExpectQuery("FROM outbox").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "aggregate", "aggregate_id", "topic", "payload", "attempts", "published_at", "created_at", "updated_at",
		}).AddRow(int64(1), "subscription", "cust-guid", "newsletter.subscription.created", []byte(`{}`), 0, nil, now, now))

	events, err := repo.FetchUnpublished(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cust-guid", events[0].AggregateID)
	assert.Nil(t, events[0].PublishedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkPublishedBatch(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewOutboxRepository(dbx)

	mock.ExpectExec(`UPDATE outbox SET published_at = NOW\(\), updated_at = NOW\(\) WHERE id IN \(\?, \?\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkPublished(context.Background(), []int64{1, 2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkPublishedEmptyIsNoop(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewOutboxRepository(dbx)

	require.NoError(t, repo.MarkPublished(context.Background(), nil))
	require.NoError(t, repo.MarkFailed(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkFailedIncrementsAttempts(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewOutboxRepository(dbx)

	mock.ExpectExec(`UPDATE outbox SET attempts = attempts \+ 1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), []int64{3}))
	require.NoError(t, mock.ExpectationsWereMet())
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ContentPlanner/internal/apperr"
)

func TestHandleDB(t *testing.T) {
	t.Run("should report unavailable without a dsn", func(t *testing.T) {
		h := NewHandle("")

		db, err := h.DB(context.Background())
		assert.Nil(t, db)
		assert.True(t, apperr.Is(err, apperr.Unavailable))
		assert.False(t, h.Configured())
	})

	t.Run("should retry opening after a failure", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		calls := 0
		h := &Handle{dsn: "planner@tcp(db:3306)/planner", open: func(ctx context.Context, dsn string) (*sql.DB, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("dial tcp: connection refused")
			}
			return mockDB, nil
		}}

		_, err = h.DB(context.Background())
		assert.True(t, apperr.Is(err, apperr.Unavailable))

		db, err := h.DB(context.Background())
		require.NoError(t, err)
		assert.Same(t, mockDB, db)

		db, err = h.DB(context.Background())
		require.NoError(t, err)
		assert.Same(t, mockDB, db)
		assert.Equal(t, 2, calls)
	})

	t.Run("should share one connection attempt between concurrent callers", func(t *testing.T) {
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		h := &Handle{dsn: "planner@tcp(db:3306)/planner", open: func(ctx context.Context, dsn string) (*sql.DB, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return nil, errors.New("dial tcp: i/o timeout")
		}}

		var wg sync.WaitGroup
		errs := make([]error, 5)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[0] = h.DB(context.Background())
		}()
		<-started
		for i := 1; i < len(errs); i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = h.DB(context.Background())
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, err := range errs {
			assert.True(t, apperr.Is(err, apperr.Unavailable))
		}
	})

	t.Run("should stop waiting when the caller's context is done", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		h := &Handle{dsn: "planner@tcp(db:3306)/planner", open: func(ctx context.Context, dsn string) (*sql.DB, error) {
			<-release
			return nil, errors.New("dial tcp: i/o timeout")
		}}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := h.DB(ctx)
		assert.True(t, apperr.Is(err, apperr.Unavailable))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestHandleInTx(t *testing.T) {
	t.Run("should commit when the callback succeeds", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE payment_requests").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = FromDB(mockDB).InTx(context.Background(), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(context.Background(), "UPDATE payment_requests SET status = 'approved'")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should roll back when the callback fails", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		failure := apperr.New(apperr.InvalidState, "payment request already decided")
		err = FromDB(mockDB).InTx(context.Background(), func(tx *sql.Tx) error {
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	tables := []string{"users", "content_posts", "content_templates", "subscriptions", "payment_requests", "user_teams", "team_members"}
	require.Len(t, schema, len(tables))
	for _, table := range tables {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table + " ").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), FromDB(mockDB)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.True(t, apperr.Is(Classify(fmt.Errorf("query: %w", driver.ErrBadConn)), apperr.Unavailable))

	plain := errors.New("syntax error")
	assert.Same(t, plain, Classify(plain))

	kinded := apperr.New(apperr.NotFound, "payment request not found")
	assert.Same(t, kinded, Classify(kinded))
}

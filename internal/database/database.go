package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/sync/singleflight"

	"github.com/digkill/ContentPlanner/internal/apperr"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handle owns the process-wide connection pool. The pool is opened on first
// use so the API can start without a reachable store; until it can be opened
// every call fails with an Unavailable error and the next call retries.
type Handle struct {
	dsn  string
	open func(ctx context.Context, dsn string) (*sql.DB, error)

	// dials collapses concurrent connection attempts into one.
	dials singleflight.Group

	mu sync.Mutex
	db *sql.DB
}

func NewHandle(dsn string) *Handle {
	return &Handle{dsn: dsn, open: Connect}
}

// FromDB wraps an already opened pool.
func FromDB(db *sql.DB) *Handle {
	return &Handle{db: db}
}

func (h *Handle) Configured() bool {
	return h.dsn != "" || h.db != nil
}

// DB returns the pool, opening it if needed. Callers arriving while a
// connection attempt is running share its result; each still returns as
// soon as its own ctx is done.
func (h *Handle) DB(ctx context.Context) (*sql.DB, error) {
	if db := h.current(); db != nil {
		return db, nil
	}
	if h.dsn == "" {
		return nil, apperr.New(apperr.Unavailable, "database not configured")
	}

	result := h.dials.DoChan("connect", func() (any, error) {
		if db := h.current(); db != nil {
			return db, nil
		}
		db, err := h.open(context.WithoutCancel(ctx), h.dsn)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.db = db
		h.mu.Unlock()
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Unavailable, ctx.Err(), "database not available")
	case res := <-result:
		if res.Err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, res.Err, "database not available")
		}
		return res.Val.(*sql.DB), nil
	}
}

func (h *Handle) current() *sql.DB {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (h *Handle) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := h.DB(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", Classify(err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", Classify(err))
	}
	return nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Connect opens the MySQL connection with sensible pooling defaults.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Conditional updates compare matched rows, not changed rows.
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetConnMaxLifetime(time.Minute * 5)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// Migrate runs the bootstrap schema to ensure required tables exist.
func Migrate(ctx context.Context, h *Handle) error {
	db, err := h.DB(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Classify marks connection-level failures as Unavailable and returns any
// other error unchanged.
func Classify(err error) error {
	if err == nil || apperr.KindOf(err) != "" {
		return err
	}
	var opErr *net.OpError
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.As(err, &opErr) {
		return apperr.Wrap(apperr.Unavailable, err, "database not available")
	}
	return err
}

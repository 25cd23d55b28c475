package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	applog "pagewiki/app/internal/log"
)

const (
	defaultAcquireTimeout = 5 * time.Second
	defaultQueryTimeout   = 5 * time.Second
)

// ConnectionError reports that no pooled connection could be acquired.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("acquiring database connection: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// QueryError reports a statement that failed to execute, including constraint violations.
type QueryError struct {
	Statement string
	Cause     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Statement, e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// AccessOptions bounds how long callers wait on the pool and on a single statement.
type AccessOptions struct {
	AcquireTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *logrus.Logger
}

// Access hands out single-operation connections from the shared pool.
type Access struct {
	db             *gorm.DB
	acquireTimeout time.Duration
	queryTimeout   time.Duration
	logger         *logrus.Logger
}

// NewAccess wraps the pool opened by Open.
func NewAccess(db *gorm.DB, opts AccessOptions) (*Access, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = defaultAcquireTimeout
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}

	return &Access{
		db:             db,
		acquireTimeout: opts.AcquireTimeout,
		queryTimeout:   opts.QueryTimeout,
		logger:         opts.Logger,
	}, nil
}

// DB returns the pool handle.
func (a *Access) DB() *gorm.DB {
	return a.db
}

// WithConnection acquires one connection, runs op with a session pinned to it and
// releases the connection before returning, whatever op did. When the connection
// cannot be acquired op is never invoked and a *ConnectionError is returned.
func (a *Access) WithConnection(ctx context.Context, op func(conn *gorm.DB) error) error {
	if op == nil {
		return eris.New("connection operation is required")
	}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, a.acquireTimeout)
	defer cancelAcquire()

	invoked := false
	err := a.db.WithContext(acquireCtx).Connection(func(tx *gorm.DB) error {
		invoked = true
		cancelAcquire()

		queryCtx, cancelQuery := context.WithTimeout(ctx, a.queryTimeout)
		defer cancelQuery()

		return op(tx.WithContext(queryCtx))
	})

	if err != nil && !invoked {
		a.logError(err, "acquiring database connection")
		return &ConnectionError{Cause: err}
	}

	return err
}

func (a *Access) logError(err error, message string) {
	if a.logger == nil {
		return
	}
	applog.Component(a.logger, "db.access").WithField("error", err.Error()).Error(message)
}

// Exec runs a mutating statement on conn and returns the number of affected rows.
func Exec(conn *gorm.DB, statement string, args ...any) (int64, error) {
	result := conn.Exec(statement, args...)
	if result.Error != nil {
		return 0, WrapQueryError(statement, result.Error)
	}
	return result.RowsAffected, nil
}

// Query runs a read statement on conn and scans the row set into dest.
func Query(conn *gorm.DB, dest any, statement string, args ...any) error {
	if err := conn.Raw(statement, args...).Scan(dest).Error; err != nil {
		return WrapQueryError(statement, err)
	}
	return nil
}

// WrapQueryError converts a driver failure into a *QueryError. Record-not-found
// passes through untouched so callers can map it to their own semantics.
func WrapQueryError(statement string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return err
	}

	return &QueryError{Statement: statement, Cause: err}
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/event-registration/internal/database"
)

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// store is embedded by every repository.  Calls made with a context
// returned by withTx run on that transaction; all others use the pool.
type store struct {
	db      *sql.DB
	dialect database.Dialect
}

func (s store) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// withTx runs fn inside a single transaction and commits when fn returns
// nil.  Any error from fn rolls the transaction back.  Nested calls reuse
// the outer transaction.  MySQL transactions run READ COMMITTED so counts
// taken after a row lock see every previously committed claim.
func (s store) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	var opts *sql.TxOptions
	if s.dialect == database.MySQL {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: commit: %w", ErrStoreUnavailable, err)
	}
	committed = true
	return nil
}

package txmanager

import (
	"context"
	"errors"
	"fmt"
	"slotwise/infras/otel"
	"slotwise/infras/postgres"
	"slotwise/shared/constant"
	"slotwise/shared/logger"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	otelScopeName = "txmanager"

	queryAdvisoryLock = "SELECT pg_advisory_xact_lock(hashtext($1))"
)

type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

type TxManager interface {
	// Do runs fn inside a write transaction, committing when fn returns nil.
	Do(ctx context.Context, fn TxFunc) error
	// DoLocked is Do with a transaction scoped advisory lock on key taken first,
	// so callers holding the same key run one after another.
	DoLocked(ctx context.Context, key string, fn TxFunc) error
}

type txManagerImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) TxManager {
	return &txManagerImpl{
		db:   db,
		otel: otel,
	}
}

func (m *txManagerImpl) Do(ctx context.Context, fn TxFunc) (err error) {
	ctx, scope := m.otel.NewScope(ctx, constant.OtelRepositoryScopeName, otelScopeName+".Do")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return m.run(ctx, fn)
}

func (m *txManagerImpl) DoLocked(ctx context.Context, key string, fn TxFunc) (err error) {
	ctx, scope := m.otel.NewScope(ctx, constant.OtelRepositoryScopeName, otelScopeName+".DoLocked")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute("lock.key", key)

	return m.run(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, queryAdvisoryLock, key); err != nil {
			logger.ErrorWithStack(err)

			return fmt.Errorf("failed to acquire advisory lock: %w", err)
		}

		return fn(ctx, tx)
	})
}

func (m *txManagerImpl) run(ctx context.Context, fn TxFunc) (err error) {
	tx, err := m.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to rollback transaction")

			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}

		return err
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

package application

import "context"

// UnitOfWork provides transactional support for aggregating multiple operations.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork executes fn within a unit of work. The transaction is
// rolled back when fn returns an error or panics.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) (err error) {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback(txCtx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}

	return uow.Commit(txCtx)
}

// NoopUnitOfWork runs functions without a transaction. It backs the
// in-memory repositories.
type NoopUnitOfWork struct{}

func (NoopUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (NoopUnitOfWork) Commit(context.Context) error                       { return nil }
func (NoopUnitOfWork) Rollback(context.Context) error                     { return nil }

package storage

import (
	"context"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"gorm.io/gorm"
)

// Tx is a transaction handle mappers can participate in. Passing a nil Tx to
// a mapper runs the statement on its own connection.
type Tx interface {
	Commit() error
	Rollback() error
}

type gormTx struct {
	db   *gorm.DB
	done bool
}

func (t *gormTx) Commit() error {
	if t.done {
		return appErr.New(appErr.CodeStorage, "transaction already finished")
	}
	t.done = true
	if err := t.db.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeStorage, "commit transaction failed")
	}
	return nil
}

// Rollback is a no-op once the transaction has finished, so it is safe to defer.
func (t *gormTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.db.Rollback().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeStorage, "rollback transaction failed")
	}
	return nil
}

// Begin starts a transaction on db.
func Begin(ctx context.Context, db *gorm.DB) (Tx, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeStorage, "begin transaction failed")
	}
	return &gormTx{db: tx}, nil
}

// conn returns the handle a statement should run on.
func conn(ctx context.Context, db *gorm.DB, tx Tx) *gorm.DB {
	if t, ok := tx.(*gormTx); ok && t != nil {
		return t.db.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

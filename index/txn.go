package index

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/Yarin78/morphy-sub004/transaction"
)

// MaxUpdateRetries bounds how often Update reruns a transaction that lost a
// commit race.
const MaxUpdateRetries = 5

// Txn groups several edits of one store into a single commit. Reads inside the
// transaction see its own staged edits.
type Txn[E any] struct {
	store *Store[E]
	tx    *transaction.Transaction
}

// Begin starts a transaction at the store's current version.
func (s *Store[E]) Begin() (*Txn[E], error) {
	tx, err := transaction.Begin(s.backend)
	if err != nil {
		return nil, err
	}
	return &Txn[E]{store: s, tx: tx}, nil
}

// Update runs fn in a transaction and commits it. When another commit got in
// first the whole transaction is rerun from a fresh version, with Fibonacci
// backoff. fn must not keep anything from an earlier attempt.
func (s *Store[E]) Update(ctx context.Context, fn func(tx *Txn[E]) error) error {
	b := retry.NewFibonacci(10 * time.Millisecond)
	return retry.Do(ctx, retry.WithMaxRetries(MaxUpdateRetries, b), func(ctx context.Context) error {
		tx, err := s.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			if tx.tx.Active() {
				tx.Rollback()
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if errors.Is(err, transaction.ErrConflict) {
				log.Debug("retrying transaction after conflict", "id", tx.ID(), "base", tx.tx.BaseVersion(), "err", err)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (t *Txn[E]) ID() uuid.UUID { return t.tx.ID() }

func (t *Txn[E]) Add(e E) (int32, error) {
	return t.store.tree.Insert(t.tx, e)
}

func (t *Txn[E]) Get(id int32) (E, bool, error) {
	return get(t.store.tree, t.tx, id)
}

func (t *Txn[E]) GetByKey(key E) (E, bool, error) {
	return getUnique(t.store.tree, t.tx, key)
}

func (t *Txn[E]) GetAll(key E) ([]E, error) {
	return t.store.tree.FindAll(t.tx, key, 0)
}

func (t *Txn[E]) PutByID(id int32, e E) error {
	tree := t.store.tree
	old, ok, err := get(tree, t.tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if tree.Codec().Compare(old, e) == 0 {
		return tree.Rewrite(t.tx, id, e)
	}
	return tree.Move(t.tx, id, e)
}

func (t *Txn[E]) PutByKey(e E) error {
	old, ok, err := t.GetByKey(e)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return t.PutByID(t.store.codec.ID(old), e)
}

func (t *Txn[E]) Delete(id int32) (bool, error) {
	return t.store.tree.Delete(t.tx, id)
}

func (t *Txn[E]) DeleteByKey(key E) (bool, error) {
	e, ok, err := t.GetByKey(key)
	if err != nil || !ok {
		return false, err
	}
	return t.Delete(t.store.codec.ID(e))
}

// Commit applies the transaction. It fails with transaction.ErrConflict if the
// store changed since Begin, in which case nothing was written.
func (t *Txn[E]) Commit() error { return t.tx.Commit() }

func (t *Txn[E]) Rollback() error { return t.tx.Rollback() }

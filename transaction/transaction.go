// Package transaction stages node and metadata writes in memory on top of a
// storage backend and applies them in one step on commit.
//
// Concurrency control is optimistic: a transaction remembers the store version it
// started from and refuses to commit if anything else committed in between.
package transaction

import (
	"errors"
	"fmt"
	log "log/slog"

	"github.com/google/uuid"

	"github.com/Yarin78/morphy-sub004/storage"
)

var (
	// ErrConflict is returned by Commit when the store changed after Begin.
	ErrConflict = errors.New("transaction conflicts with a concurrent commit")

	// ErrTransactionDone is returned by any operation on a committed or rolled
	// back transaction.
	ErrTransactionDone = errors.New("transaction has already been committed or rolled back")
)

// Transaction is a copy-on-write view of a backend. Reads see staged writes first
// and fall through to the backend otherwise. A transaction is used once.
type Transaction struct {
	id      uuid.UUID
	backend storage.Backend
	base    storage.Metadata

	meta  *storage.Metadata
	nodes map[int32]storage.Node
	order []int32
	done  bool
}

// Begin starts a transaction on b at its current version.
func Begin(b storage.Backend) (*Transaction, error) {
	meta, err := b.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{
		id:      uuid.New(),
		backend: b,
		base:    meta,
		nodes:   make(map[int32]storage.Node),
	}, nil
}

func (t *Transaction) ID() uuid.UUID { return t.id }

// BaseVersion is the store version the transaction started from.
func (t *Transaction) BaseVersion() uint64 { return t.base.Version }

// Active reports whether the transaction can still be used.
func (t *Transaction) Active() bool { return !t.done }

// Pending returns the number of staged node writes.
func (t *Transaction) Pending() int { return len(t.nodes) }

func (t *Transaction) checkActive() error {
	if t.done {
		return ErrTransactionDone
	}
	return nil
}

func (t *Transaction) Node(id int32) (storage.Node, bool, error) {
	if err := t.checkActive(); err != nil {
		return storage.Node{}, false, err
	}
	if n, ok := t.nodes[id]; ok {
		return n.Clone(), true, nil
	}
	return t.backend.Get(id)
}

// PutNode stages a node write. Writing the same id again replaces the staged node
// but keeps its original position in the commit order.
func (t *Transaction) PutNode(n storage.Node) error {
	if err := t.checkActive(); err != nil {
		return err
	}
	if _, ok := t.nodes[n.ID]; !ok {
		t.order = append(t.order, n.ID)
	}
	t.nodes[n.ID] = n.Clone()
	return nil
}

func (t *Transaction) Meta() (storage.Metadata, error) {
	if err := t.checkActive(); err != nil {
		return storage.Metadata{}, err
	}
	if t.meta != nil {
		return *t.meta, nil
	}
	return t.base, nil
}

func (t *Transaction) SetMeta(m storage.Metadata) error {
	if err := t.checkActive(); err != nil {
		return err
	}
	t.meta = &m
	return nil
}

// Commit applies the staged nodes in the order they were first written, then the
// metadata, and moves the store to the next version. A transaction that staged
// nothing commits without touching the store. The transaction is finished
// afterwards whatever the outcome.
func (t *Transaction) Commit() error {
	if err := t.checkActive(); err != nil {
		return err
	}
	t.done = true

	current, err := t.backend.Metadata()
	if err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", t.id, err)
	}
	if current.Version != t.base.Version {
		log.Debug("transaction conflict", "id", t.id, "base", t.base.Version, "current", current.Version)
		return fmt.Errorf("%w: transaction %s started at version %d, store is at %d",
			ErrConflict, t.id, t.base.Version, current.Version)
	}
	if len(t.nodes) == 0 && t.meta == nil {
		return nil
	}

	for _, id := range t.order {
		if err := t.backend.Put(t.nodes[id]); err != nil {
			return fmt.Errorf("failed to commit transaction %s: %w", t.id, err)
		}
	}
	meta := t.base
	if t.meta != nil {
		meta = *t.meta
	}
	meta.Version = t.base.Version + 1
	if err := t.backend.SetMetadata(meta); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", t.id, err)
	}

	log.Debug("committed transaction", "id", t.id, "nodes", len(t.order), "version", meta.Version)
	t.nodes, t.order, t.meta = nil, nil, nil
	return nil
}

// Rollback discards everything staged.
func (t *Transaction) Rollback() error {
	if err := t.checkActive(); err != nil {
		return err
	}
	t.done = true
	log.Debug("rolled back transaction", "id", t.id, "nodes", len(t.order))
	t.nodes, t.order, t.meta = nil, nil, nil
	return nil
}

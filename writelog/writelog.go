// Package writelog implements the transactional staging buffer layered
// between transaction execution and durable storage.
//
// Mutations staged by a transaction live in a tx-scoped log until the
// transaction's acceptance is decided: CommitTx promotes them into a
// block-scoped log, DropTx discards them. CommitBlock flushes the
// block-scoped log into storage and clears it. Reads observe the
// in-flight transaction's own writes first, then writes committed by
// earlier transactions in the same block.
package writelog

import (
	"sort"

	"github.com/isabella232/anoma/types"
)

// Modification is a single pending mutation: either a write of Value
// or, when Deleted is set, a delete.
type Modification struct {
	Value   []byte
	Deleted bool
}

func (m Modification) clone() Modification {
	if m.Value == nil {
		return m
	}
	v := make([]byte, len(m.Value))
	copy(v, m.Value)
	return Modification{Value: v, Deleted: m.Deleted}
}

type entry struct {
	key types.StorageKey
	mod Modification
}

// Store is the sink CommitBlock flushes into. Implemented by the
// storage layer.
type Store interface {
	Write(key types.StorageKey, value []byte) error
	Delete(key types.StorageKey) error
}

// WriteLog buffers pending mutations. It is owned by the shell thread
// and must not be mutated concurrently; predicate workers only read it
// through the shell's read-only views.
type WriteLog struct {
	tx    map[string]entry
	block map[string]entry
}

// New creates an empty write log.
func New() *WriteLog {
	return &WriteLog{
		tx:    make(map[string]entry),
		block: make(map[string]entry),
	}
}

// Write stages a pending write for the in-flight transaction.
func (l *WriteLog) Write(key types.StorageKey, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	l.tx[key.String()] = entry{key: key, mod: Modification{Value: v}}
}

// Delete stages a pending delete for the in-flight transaction.
func (l *WriteLog) Delete(key types.StorageKey) {
	l.tx[key.String()] = entry{key: key, mod: Modification{Deleted: true}}
}

// Read returns the staged modification for key, if any: the in-flight
// transaction's own writes shadow the block-scoped log. The returned
// value is a copy; callers cannot mutate the staged state through it.
func (l *WriteLog) Read(key types.StorageKey) (Modification, bool) {
	k := key.String()
	if e, ok := l.tx[k]; ok {
		return e.mod.clone(), true
	}
	if e, ok := l.block[k]; ok {
		return e.mod.clone(), true
	}
	return Modification{}, false
}

// ChangedKeys returns the keys touched by the in-flight transaction,
// sorted by their canonical string form so downstream iteration is
// deterministic.
func (l *WriteLog) ChangedKeys() []types.StorageKey {
	flat := make([]string, 0, len(l.tx))
	for k := range l.tx {
		flat = append(flat, k)
	}
	sort.Strings(flat)
	keys := make([]types.StorageKey, len(flat))
	for i, k := range flat {
		keys[i] = l.tx[k].key
	}
	return keys
}

// CommitTx promotes the in-flight transaction's mutations into the
// block-scoped log, making them visible to later transactions in the
// same block.
func (l *WriteLog) CommitTx() {
	for k, e := range l.tx {
		l.block[k] = e
	}
	l.tx = make(map[string]entry)
}

// DropTx discards the in-flight transaction's mutations, leaving the
// block-scoped log untouched.
func (l *WriteLog) DropTx() {
	l.tx = make(map[string]entry)
}

// CommitBlock applies the block-scoped log to the store in key order
// and clears it. The in-flight log is expected to be empty.
func (l *WriteLog) CommitBlock(store Store) error {
	flat := make([]string, 0, len(l.block))
	for k := range l.block {
		flat = append(flat, k)
	}
	sort.Strings(flat)
	for _, k := range flat {
		e := l.block[k]
		if e.mod.Deleted {
			if err := store.Delete(e.key); err != nil {
				return err
			}
			continue
		}
		if err := store.Write(e.key, e.mod.Value); err != nil {
			return err
		}
	}
	l.block = make(map[string]entry)
	return nil
}

// TxLen returns the number of keys staged by the in-flight transaction.
func (l *WriteLog) TxLen() int { return len(l.tx) }

// BlockLen returns the number of keys in the block-scoped log.
func (l *WriteLog) BlockLen() int { return len(l.block) }

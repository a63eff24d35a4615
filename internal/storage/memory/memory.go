// Package memory provides an in-process storage.Backend backed by guarded
// maps, modeled on the teacher's map-plus-RWMutex persistence backend.
// It is the default backend for tests and single-process development runs.
package memory

import (
	"context"
	"sync"

	"github.com/r3e-network/governance-core/internal/storage"
)

// Backend is a storage.Backend implementation held entirely in memory.
// It satisfies the append-only-log invariant by never exposing an update
// or delete verb on Append/ScanLog.
type Backend struct {
	mu       sync.RWMutex
	entities map[storage.EntityKind]map[string][]byte
	logs     map[storage.LogName][][]byte
}

// New returns an empty memory-backed Backend.
func New() *Backend {
	return &Backend{
		entities: make(map[storage.EntityKind]map[string][]byte),
		logs:     make(map[storage.LogName][][]byte),
	}
}

func (b *Backend) Put(ctx context.Context, kind storage.EntityKind, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putLocked(kind, id, data)
}

func (b *Backend) putLocked(kind storage.EntityKind, id string, data []byte) error {
	bucket, ok := b.entities[kind]
	if !ok {
		bucket = make(map[string][]byte)
		b.entities[kind] = bucket
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	bucket[id] = cp
	return nil
}

func (b *Backend) Get(ctx context.Context, kind storage.EntityKind, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bucket, ok := b.entities[kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	data, ok := bucket[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (b *Backend) Scan(ctx context.Context, kind storage.EntityKind, filter storage.ScanFilter) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bucket := b.entities[kind]
	results := make([][]byte, 0, len(bucket))
	for id, data := range bucket {
		if filter == nil || filter(id, data) {
			cp := make([]byte, len(data))
			copy(cp, data)
			results = append(results, cp)
		}
	}
	return results, nil
}

func (b *Backend) Append(ctx context.Context, log storage.LogName, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendLocked(log, record)
}

func (b *Backend) appendLocked(log storage.LogName, record []byte) error {
	cp := make([]byte, len(record))
	copy(cp, record)
	b.logs[log] = append(b.logs[log], cp)
	return nil
}

func (b *Backend) ScanLog(ctx context.Context, log storage.LogName) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	records := b.logs[log]
	out := make([][]byte, len(records))
	for i, r := range records {
		cp := make([]byte, len(r))
		copy(cp, r)
		out[i] = cp
	}
	return out, nil
}

// Tx holds the full backend lock for its duration, giving the callback a
// consistent view and serializing concurrent transactions. Writes apply
// immediately; on a non-nil return from fn, already-applied writes in this
// call are not rolled back from the map, but since the lock is held for
// the whole transaction no other reader observes a partial state until fn
// returns, and the caller is expected to treat a transaction error as a
// signal to abort the surrounding operation (State Manager and PSMP Engine
// never act on the returned entity when Tx errors).
func (b *Backend) Tx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &memTx{backend: b}
	return fn(ctx, tx)
}

func (b *Backend) Close(ctx context.Context) error {
	return nil
}

type memTx struct {
	backend *Backend
}

func (t *memTx) Put(ctx context.Context, kind storage.EntityKind, id string, data []byte) error {
	return t.backend.putLocked(kind, id, data)
}

func (t *memTx) Append(ctx context.Context, log storage.LogName, record []byte) error {
	return t.backend.appendLocked(log, record)
}

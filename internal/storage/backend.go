// Package storage defines the narrow persistence contract shared by every
// governance component: entity storage keyed by kind and id, append-only
// logs for events and audit trails, and a bounded transaction grouping.
package storage

import "context"

// EntityKind names a class of stored entity. Each kind maps to its own
// keyspace (e.g. "projects/<id>") in a given backend.
type EntityKind string

const (
	KindProject    EntityKind = "projects"
	KindTask       EntityKind = "tasks"
	KindArtifact   EntityKind = "artifacts"
	KindCheckpoint EntityKind = "checkpoints"
	KindResolution EntityKind = "resolutions"
)

// LogName identifies one of the append-only logs.
type LogName string

const (
	LogPSMPEvents LogName = "psmp_events"
)

// AuditLogName builds the per-organization compliance log name, matching
// the persisted layout "compliance_audit_<organization>.jsonl".
func AuditLogName(organization string) LogName {
	return LogName("compliance_audit_" + organization)
}

// ScanFilter decides whether a scanned record should be included in the
// result set. Implementations must not mutate data.
type ScanFilter func(id string, data []byte) bool

// Tx groups a bounded set of record writes and log appends that commit or
// roll back together. It is only valid for the lifetime of the callback
// passed to Backend.Tx.
type Tx interface {
	Put(ctx context.Context, kind EntityKind, id string, data []byte) error
	Append(ctx context.Context, log LogName, record []byte) error
}

// Backend is the storage contract every governance component depends on.
// All writes are atomic at the single-record level; Tx groups at most a
// bounded set of records into one all-or-nothing unit. Implementations
// return the underlying error on I/O failure; callers wrap it with
// internal/errors.StorageUnavailable.
type Backend interface {
	Put(ctx context.Context, kind EntityKind, id string, data []byte) error
	Get(ctx context.Context, kind EntityKind, id string) ([]byte, error)
	Scan(ctx context.Context, kind EntityKind, filter ScanFilter) ([][]byte, error)
	Append(ctx context.Context, log LogName, record []byte) error
	ScanLog(ctx context.Context, log LogName) ([][]byte, error)
	Tx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}

// ErrNotFound is returned by Get for a missing id; callers translate it to
// internal/errors.NotFound with the entity kind and id attached.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: entity not found" }

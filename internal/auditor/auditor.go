// Package auditor provides the append-only, queryable compliance event
// sink: one JSON line per AuditEntry, per organization,
// with optional hash chaining for tamper detection.
package auditor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/metrics"
	"github.com/r3e-network/governance-core/internal/storage"
	"github.com/r3e-network/governance-core/internal/watchdog"
)

// record is the on-disk representation of one audit line.
type record struct {
	Entry    domain.AuditEntry `json:"entry"`
	PrevHash string            `json:"prev_hash,omitempty"`
}

// Auditor is the single-writer audit log: writes are serialized per
// organization by an internal mutex so concurrent producers never
// interleave partial JSON lines, matching the single-writer queue
// policy.
//
// gate is a highWater-sized admission semaphore: callers exceeding it under
// config.PolicyComplianceLocalOnly block until a slot drains; callers under
// any other policy proceed without acquiring one and the write is logged as
// a backpressure warning instead of being rejected.
type Auditor struct {
	mu         sync.Mutex
	backend    storage.Backend
	hashChain  bool
	limiter    *rate.Limiter
	highWater  int
	gate       chan struct{}
	queueDepth int
	depthMu    sync.Mutex
	lastHash   map[string]string
	log        *logger.Logger
	metrics    *metrics.Metrics
	heart      *watchdog.Heartbeat
}

// New builds an Auditor backed by backend, configured from
// config.ComplianceConfig.
func New(backend storage.Backend, cfg config.ComplianceConfig, log *logger.Logger) *Auditor {
	if log == nil {
		log = logger.NewDefault("auditor")
	}
	highWater := cfg.QueueHighWater
	if highWater <= 0 {
		highWater = 10000
	}
	return &Auditor{
		backend:   backend,
		hashChain: cfg.HashChain,
		limiter:   rate.NewLimiter(rate.Limit(highWater), highWater),
		highWater: highWater,
		gate:      make(chan struct{}, highWater),
		lastHash:  make(map[string]string),
		log:       log,
	}
}

// SetMetrics attaches a Metrics collector for queue-depth and write-outcome
// observability.
func (a *Auditor) SetMetrics(m *metrics.Metrics) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metrics = m
}

// SetHeartbeat ties each Append call to a watchdog.Heartbeat, so the audit
// writer loop's liveness tracks actual write activity.
func (a *Auditor) SetHeartbeat(h *watchdog.Heartbeat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.heart = h
}

// Append persists entry durably before returning, satisfying
// securegw.AuditWriter. When the queue depth exceeds the high-water mark,
// entry.PolicyName decides how backpressure is handled: under
// config.PolicyComplianceLocalOnly, Append blocks the caller until the
// queue drains; under any other policy, it proceeds and records a warning
// metric instead of blocking or rejecting.
func (a *Auditor) Append(ctx context.Context, entry domain.AuditEntry) error {
	a.mu.Lock()
	heart := a.heart
	a.mu.Unlock()
	if heart != nil {
		heart.Beat()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	org := entry.Organization
	if org == "" {
		org = "default"
	}

	a.depthMu.Lock()
	a.queueDepth++
	depth := a.queueDepth
	a.depthMu.Unlock()
	defer func() {
		a.depthMu.Lock()
		a.queueDepth--
		a.depthMu.Unlock()
	}()

	if a.metrics != nil {
		a.metrics.SetAuditQueueDepth(depth)
	}

	acquired := false
	select {
	case a.gate <- struct{}{}:
		acquired = true
	default:
	}
	if !acquired {
		if a.metrics != nil {
			a.metrics.RecordAuditWrite(org, "backpressure")
		}
		if entry.PolicyName == string(config.PolicyComplianceLocalOnly) {
			select {
			case a.gate <- struct{}{}:
				acquired = true
			case <-ctx.Done():
				return svcerrors.AuditFailure(org, ctx.Err())
			}
		} else {
			a.log.WithField("organization", org).Warn("audit queue depth exceeds high-water mark, proceeding under best-effort policy")
			if a.metrics != nil {
				a.metrics.RecordAuditWrite(org, "backpressure_warning")
			}
		}
	}
	if acquired {
		defer func() { <-a.gate }()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return svcerrors.AuditFailure(org, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec := record{Entry: entry}
	if a.hashChain {
		rec.PrevHash = a.lastHash[org]
	}
	data, err := json.Marshal(rec)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordAuditWrite(org, "error")
		}
		return svcerrors.AuditFailure(org, err)
	}

	if err := a.backend.Append(ctx, storage.AuditLogName(org), data); err != nil {
		if a.metrics != nil {
			a.metrics.RecordAuditWrite(org, "error")
		}
		return svcerrors.AuditFailure(org, err)
	}

	if a.hashChain {
		a.lastHash[org] = hashLine(data)
	}
	if a.metrics != nil {
		a.metrics.RecordAuditWrite(org, "ok")
	}
	return nil
}

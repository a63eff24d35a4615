package auditor

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/domain"
	"github.com/r3e-network/governance-core/internal/storage"
)

// Window bounds a query by timestamp, both ends inclusive. A zero value on
// either side leaves that side unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) contains(ts time.Time) bool {
	if !w.From.IsZero() && ts.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && ts.After(w.To) {
		return false
	}
	return true
}

// Filters narrows a query by agent, sensitivity, provider, and policy.
type Filters struct {
	Agent       string
	Sensitivity *domain.Sensitivity
	Provider    string
	PolicyName  string
}

func (f Filters) matches(e domain.AuditEntry) bool {
	if f.Agent != "" && e.AgentName != f.Agent {
		return false
	}
	if f.Sensitivity != nil && e.Sensitivity != *f.Sensitivity {
		return false
	}
	if f.Provider != "" && e.SelectedProvider != f.Provider {
		return false
	}
	if f.PolicyName != "" && e.PolicyName != f.PolicyName {
		return false
	}
	return true
}

// Query returns every AuditEntry for organization within window matching
// filters, ordered by timestamp ascending. The full log is read and
// filtered in memory; callers wanting a lazy/restartable cursor should
// page by narrowing window themselves (the backend Append-only log has no
// native seek primitive to build a true streaming cursor over).
func (a *Auditor) Query(ctx context.Context, organization string, window Window, filters Filters) ([]domain.AuditEntry, error) {
	lines, err := a.backend.ScanLog(ctx, storage.AuditLogName(organization))
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_audit_log", err)
	}

	entries := make([]domain.AuditEntry, 0, len(lines))
	for _, line := range lines {
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if !window.contains(rec.Entry.Timestamp) {
			continue
		}
		if !filters.matches(rec.Entry) {
			continue
		}
		entries = append(entries, rec.Entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

// Summary is the summarize() report shape.
type Summary struct {
	Total            int            `json:"total"`
	ByAgent          map[string]int `json:"by_agent"`
	BySensitivity    map[string]int `json:"by_sensitivity"`
	ByProvider       map[string]int `json:"by_provider"`
	PolicyViolations int            `json:"policy_violations"`
}

// Summarize is a pure function over Query's result: no side effects, no
// storage access beyond the Query call itself.
func (a *Auditor) Summarize(ctx context.Context, organization string, window Window) (*Summary, error) {
	entries, err := a.Query(ctx, organization, window, Filters{})
	if err != nil {
		return nil, err
	}
	return summarize(entries), nil
}

func summarize(entries []domain.AuditEntry) *Summary {
	s := &Summary{
		ByAgent:       make(map[string]int),
		BySensitivity: make(map[string]int),
		ByProvider:    make(map[string]int),
	}
	for _, e := range entries {
		s.Total++
		if e.AgentName != "" {
			s.ByAgent[e.AgentName]++
		}
		s.BySensitivity[e.Sensitivity.String()]++
		if e.SelectedProvider != "" {
			s.ByProvider[e.SelectedProvider]++
		}
		if e.PolicyDecision == "denied" {
			s.PolicyViolations++
		}
	}
	return s
}

package securegw

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/logger"
)

const (
	kindLocal = "local_runtime"
	kindCloud = "cloud_aggregator"
)

// ProviderStatus is one LLM Gateway provider's current routing-relevant
// state, as read by Gateway during selection.
type ProviderStatus struct {
	Name     string
	Kind     string
	Priority int
	Healthy  bool
}

// ProviderSource supplies the current provider roster; internal/llmgateway
// implements it.
type ProviderSource interface {
	Statuses(ctx context.Context) ([]ProviderStatus, error)
}

// AuditWriter persists a compliance AuditEntry; internal/auditor implements
// it.
type AuditWriter interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}

// Gateway classifies tasks and selects a provider under the active routing
// policy.
type Gateway struct {
	policy      config.SecureGatewayPolicy
	strictAudit bool
	providers   ProviderSource
	auditor     AuditWriter
	log         *logger.Logger
}

// NewGateway builds a Gateway bound to a provider source and audit sink.
func NewGateway(policy config.SecureGatewayPolicy, strictAudit bool, providers ProviderSource, auditor AuditWriter, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("securegw")
	}
	if policy == "" {
		policy = config.PolicyLocalFirst
	}
	return &Gateway{policy: policy, strictAudit: strictAudit, providers: providers, auditor: auditor, log: log}
}

// Decision is the outcome of ClassifyAndSelect.
type Decision struct {
	Sensitivity      domain.Sensitivity
	SelectedProvider string
	PolicyDecision   string
	PolicyName       string
	DataResidency    domain.DataResidency
}

// cloudAllowed reports whether policy permits considering cloud-kind
// providers for sensitivity, per the routing table.
func cloudAllowed(policy config.SecureGatewayPolicy, sensitivity domain.Sensitivity) bool {
	switch policy {
	case config.PolicyComplianceLocalOnly:
		return false
	case config.PolicyEnterpriseResidency:
		return sensitivity == domain.SensitivityPublic
	default: // PolicyLocalFirst
		return sensitivity == domain.SensitivityPublic || sensitivity == domain.SensitivityInternal
	}
}

// ClassifyAndSelect classifies req, selects the highest-priority healthy
// provider allowed by the active policy, and writes a compliance audit
// entry before returning.
func (g *Gateway) ClassifyAndSelect(ctx context.Context, req ClassifyRequest) (*Decision, error) {
	sensitivity := Classify(req)

	statuses, err := g.providers.Statuses(ctx)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("list_providers", err)
	}

	allowCloud := cloudAllowed(g.policy, sensitivity)
	var candidates []ProviderStatus
	for _, p := range statuses {
		if !p.Healthy {
			continue
		}
		if p.Kind == kindCloud && !allowCloud {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Priority < candidates[j].Priority })

	decision := &Decision{Sensitivity: sensitivity, PolicyName: string(g.policy)}

	if len(candidates) == 0 {
		decision.PolicyDecision = "denied"
		g.audit(ctx, req, decision)
		return nil, svcerrors.PolicyViolation(string(g.policy), fmt.Sprintf("no healthy provider allowed for %s sensitivity", sensitivity))
	}

	selected := candidates[0]
	decision.SelectedProvider = selected.Name
	decision.PolicyDecision = "allowed"
	if selected.Kind == kindLocal {
		decision.DataResidency = domain.ResidencyLocal
	} else {
		decision.DataResidency = domain.ResidencyCloud
	}

	if err := g.audit(ctx, req, decision); err != nil {
		return nil, err
	}
	return decision, nil
}

func (g *Gateway) audit(ctx context.Context, req ClassifyRequest, decision *Decision) error {
	entry := domain.AuditEntry{
		Timestamp:        time.Now().UTC(),
		AgentName:        req.AgentName,
		TaskType:         req.TaskType,
		Sensitivity:      decision.Sensitivity,
		SelectedProvider: decision.SelectedProvider,
		PolicyDecision:   decision.PolicyDecision,
		PolicyName:       decision.PolicyName,
		Organization:     req.Organization,
		DataResidency:    decision.DataResidency,
	}

	if err := g.auditor.Append(ctx, entry); err != nil {
		if g.strictAudit || g.policy == config.PolicyComplianceLocalOnly {
			return svcerrors.PolicyViolation(string(g.policy), "audit write failed: "+err.Error())
		}
		g.log.WithField("error", err).Warn("audit write failed, proceeding under best-effort policy")
	}
	return nil
}

// Package securegw classifies every LLM-bound task by sensitivity and
// enforces the active organization's provider-routing policy, writing a
// compliance AuditEntry for every classification and selection.
package securegw

import "github.com/r3e-network/governance-core/internal/domain"

// ClassifyRequest carries the signals the deterministic classification rule
// Classify consumes.
type ClassifyRequest struct {
	AgentName        string
	TaskType         string
	HasSensitiveData bool
	HasPrivateData   bool
	IsSecurityTask   bool
	Organization     string
}

var sensitiveTaskTypes = map[string]bool{
	"code_validation":     true,
	"test_critique":       true,
	"notebook_generation": true,
}

var internalTaskTypes = map[string]bool{
	"planning":            true,
	"idea_validation":     true,
	"data_science_design": true,
	"mlops_planning":      true,
	"devops_planning":     true,
	"conflict_resolution": true,
}

// securityReviewers names agents treated as CRITICAL regardless of task
// type, matching the "agent_name in security reviewer set" clause.
var securityReviewers = map[string]bool{
	"SecurityReviewer":  true,
	"security_reviewer": true,
}

// Classify applies the deterministic sensitivity rule.
func Classify(req ClassifyRequest) domain.Sensitivity {
	switch {
	case req.HasPrivateData || req.IsSecurityTask || securityReviewers[req.AgentName]:
		return domain.SensitivityCritical
	case req.HasSensitiveData || sensitiveTaskTypes[req.TaskType]:
		return domain.SensitivitySensitive
	case internalTaskTypes[req.TaskType]:
		return domain.SensitivityInternal
	default:
		return domain.SensitivityPublic
	}
}

package securegw

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
)

type fakeProviders struct {
	statuses []ProviderStatus
	err      error
}

func (f *fakeProviders) Statuses(ctx context.Context) ([]ProviderStatus, error) {
	return f.statuses, f.err
}

type fakeAuditor struct {
	entries []domain.AuditEntry
	err     error
}

func (f *fakeAuditor) Append(ctx context.Context, entry domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func bothHealthy() *fakeProviders {
	return &fakeProviders{statuses: []ProviderStatus{
		{Name: "local", Kind: kindLocal, Priority: 1, Healthy: true},
		{Name: "cloud", Kind: kindCloud, Priority: 2, Healthy: true},
	}}
}

func TestClassifyCriticalForSecurityTask(t *testing.T) {
	s := Classify(ClassifyRequest{AgentName: "SecurityReviewer", IsSecurityTask: true})
	assert.Equal(t, domain.SensitivityCritical, s)
}

func TestClassifySensitiveForCodeValidation(t *testing.T) {
	s := Classify(ClassifyRequest{TaskType: "code_validation"})
	assert.Equal(t, domain.SensitivitySensitive, s)
}

func TestClassifyInternalForPlanning(t *testing.T) {
	s := Classify(ClassifyRequest{TaskType: "planning"})
	assert.Equal(t, domain.SensitivityInternal, s)
}

func TestClassifyPublicDefault(t *testing.T) {
	s := Classify(ClassifyRequest{TaskType: "ideation"})
	assert.Equal(t, domain.SensitivityPublic, s)
}

func TestSelectProviderCriticalAlwaysLocal(t *testing.T) {
	providers := bothHealthy()
	auditor := &fakeAuditor{}
	gw := NewGateway(config.PolicyLocalFirst, false, providers, auditor, nil)

	decision, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{
		AgentName: "SecurityReviewer", IsSecurityTask: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityCritical, decision.Sensitivity)
	assert.Equal(t, "local", decision.SelectedProvider)
	assert.Equal(t, domain.ResidencyLocal, decision.DataResidency)
	require.Len(t, auditor.entries, 1)
}

func TestSelectProviderComplianceLocalOnlyForcesLocal(t *testing.T) {
	providers := bothHealthy()
	auditor := &fakeAuditor{}
	gw := NewGateway(config.PolicyComplianceLocalOnly, false, providers, auditor, nil)

	decision, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "ideation"})
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityPublic, decision.Sensitivity)
	assert.Equal(t, "local", decision.SelectedProvider)
	assert.Equal(t, "compliance_local_only", auditor.entries[0].PolicyName)
}

func TestSelectProviderFallbackToCloudWhenLocalUnhealthy(t *testing.T) {
	providers := &fakeProviders{statuses: []ProviderStatus{
		{Name: "local", Kind: kindLocal, Priority: 1, Healthy: false},
		{Name: "cloud", Kind: kindCloud, Priority: 2, Healthy: true},
	}}
	auditor := &fakeAuditor{}
	gw := NewGateway(config.PolicyLocalFirst, false, providers, auditor, nil)

	decision, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "ideation"})
	require.NoError(t, err)
	assert.Equal(t, "cloud", decision.SelectedProvider)
	assert.Equal(t, domain.ResidencyCloud, decision.DataResidency)
}

func TestSelectProviderComplianceLocalOnlyFailsWhenLocalUnhealthy(t *testing.T) {
	providers := &fakeProviders{statuses: []ProviderStatus{
		{Name: "local", Kind: kindLocal, Priority: 1, Healthy: false},
		{Name: "cloud", Kind: kindCloud, Priority: 2, Healthy: true},
	}}
	auditor := &fakeAuditor{}
	gw := NewGateway(config.PolicyComplianceLocalOnly, false, providers, auditor, nil)

	_, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "ideation"})
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodePolicyViolation))
}

func TestAuditFailureEscalatesUnderStrictAudit(t *testing.T) {
	providers := bothHealthy()
	auditor := &fakeAuditor{err: errors.New("disk full")}
	gw := NewGateway(config.PolicyLocalFirst, true, providers, auditor, nil)

	_, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "ideation"})
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodePolicyViolation))
}

func TestAuditFailureDegradesUnderBestEffort(t *testing.T) {
	providers := bothHealthy()
	auditor := &fakeAuditor{err: errors.New("disk full")}
	gw := NewGateway(config.PolicyLocalFirst, false, providers, auditor, nil)

	decision, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "ideation"})
	require.NoError(t, err)
	assert.NotEmpty(t, decision.SelectedProvider)
}

func TestEnterpriseResidencyAllowsCloudOnlyForPublic(t *testing.T) {
	providers := bothHealthy()
	auditor := &fakeAuditor{}
	gw := NewGateway(config.PolicyEnterpriseResidency, false, providers, auditor, nil)

	decision, err := gw.ClassifyAndSelect(context.Background(), ClassifyRequest{TaskType: "planning"})
	require.NoError(t, err)
	assert.Equal(t, domain.SensitivityInternal, decision.Sensitivity)
	assert.Equal(t, "local", decision.SelectedProvider)
}

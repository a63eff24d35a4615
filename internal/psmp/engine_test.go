package psmp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/statemgr"
	"github.com/r3e-network/governance-core/internal/storage/memory"
)

func newTestEngine(t *testing.T, mode config.GovernanceMode) (*Engine, *statemgr.Manager, *domain.Project) {
	t.Helper()
	backend := memory.New()
	state := statemgr.NewManager(backend, nil)
	engine := NewEngine(backend, state, mode, nil)

	ctx := context.Background()
	project, err := state.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)
	project, err = state.TransitionProject(ctx, project.ID, domain.ProjectPlanning, "")
	require.NoError(t, err)
	project, err = state.TransitionProject(ctx, project.ID, domain.ProjectInProgress, "")
	require.NoError(t, err)

	return engine, state, project
}

func dep(name, constraint string, scope domain.DependencyScope) domain.DependencySpec {
	return domain.DependencySpec{Name: name, VersionConstraint: constraint, Scope: scope, DeclaredByAgent: "agent", Purpose: "library"}
}

func TestDeclareArtifactHappyPath(t *testing.T) {
	engine, _, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	result, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID:    project.ID,
		AgentID:      "Coder",
		ArtifactType: domain.ArtifactCode,
		Summary:      "initial handler",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Empty(t, result.Conflicts)

	result, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID:    project.ID,
		AgentID:      "DataSci",
		ArtifactType: domain.ArtifactAnalysis,
		Summary:      "notebook",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100,<0.120", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)

	manifest, err := engine.GenerateManifest(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, "fastapi", manifest[0].Library)
	assert.Equal(t, ">=0.100,<0.120", manifest[0].Range)
}

func TestDeclareArtifactCriticalConflictBlocksProject(t *testing.T) {
	engine, state, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	_, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "DataSci", ArtifactType: domain.ArtifactAnalysis, Summary: "a2",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100,<0.120", domain.ScopeRuntime)},
	})
	require.NoError(t, err)

	result, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Notebook", ArtifactType: domain.ArtifactAnalysis, Summary: "a3",
		Dependencies: []domain.DependencySpec{dep("fastapi", "==0.90", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, domain.SeverityCritical, result.Conflicts[0].Severity)
	require.Len(t, result.Conflicts[0].Requirements, 3)

	updated, err := state.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectBlocked, updated.Status)

	_, err = engine.GenerateManifest(ctx, project.ID)
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeProjectBlocked))

	report, err := engine.GetConflicts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalConflicts)
}

func TestResolveConflictUnblocksProject(t *testing.T) {
	engine, state, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	_, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Notebook", ArtifactType: domain.ArtifactAnalysis, Summary: "a2",
		Dependencies: []domain.DependencySpec{dep("fastapi", "==0.90", domain.ScopeRuntime)},
	})
	require.NoError(t, err)

	updated, err := state.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProjectBlocked, updated.Status)

	_, err = engine.ResolveConflict(ctx, project.ID, "fastapi", "==0.115", "ConflictResolver")
	require.NoError(t, err)

	updated, err = state.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectInProgress, updated.Status)

	manifest, err := engine.GenerateManifest(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, "==0.115", manifest[0].Range)
	assert.Equal(t, domain.ScopeRuntime, manifest[0].Scope)
}

func TestResolveConflictPreservesDeclaredScope(t *testing.T) {
	engine, _, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("pytest", ">=7.0", domain.ScopeDev)},
	})
	require.NoError(t, err)
	_, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Notebook", ArtifactType: domain.ArtifactAnalysis, Summary: "a2",
		Dependencies: []domain.DependencySpec{dep("pytest", "==6.5", domain.ScopeDev)},
	})
	require.NoError(t, err)

	_, err = engine.ResolveConflict(ctx, project.ID, "pytest", "==7.2", "ConflictResolver")
	require.NoError(t, err)

	manifest, err := engine.GenerateManifest(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, domain.ScopeDev, manifest[0].Scope)
}

func TestDeclareArtifactRejectsInvalidDependency(t *testing.T) {
	engine, _, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "bad",
		Dependencies: []domain.DependencySpec{dep("fastapi", "not-a-constraint", domain.ScopeRuntime)},
	})
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeInvalidDeclaration))
}

func TestDeclareArtifactRejectsWhenProjectBlocked(t *testing.T) {
	engine, state, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	_, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Notebook", ArtifactType: domain.ArtifactAnalysis, Summary: "a2",
		Dependencies: []domain.DependencySpec{dep("fastapi", "==0.90", domain.ScopeRuntime)},
	})
	require.NoError(t, err)

	updated, err := state.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProjectBlocked, updated.Status)

	_, err = engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Another", ArtifactType: domain.ArtifactCode, Summary: "a3",
		Dependencies: nil,
	})
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeProjectBlocked))
}

func TestDeclareArtifactIdempotentOnRepeatedID(t *testing.T) {
	engine, _, project := newTestEngine(t, config.ModeAdaptive)
	ctx := context.Background()

	req := DeclareArtifactRequest{
		ArtifactID: "fixed-id", ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	}
	first, err := engine.DeclareArtifact(ctx, req)
	require.NoError(t, err)

	second, err := engine.DeclareArtifact(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Artifact.ID, second.Artifact.ID)
}

func TestDeclareArtifactPlaygroundModeNeverBlocks(t *testing.T) {
	engine, state, project := newTestEngine(t, config.ModePlayground)
	ctx := context.Background()

	_, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Coder", ArtifactType: domain.ArtifactCode, Summary: "a1",
		Dependencies: []domain.DependencySpec{dep("fastapi", ">=0.100", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	result, err := engine.DeclareArtifact(ctx, DeclareArtifactRequest{
		ProjectID: project.ID, AgentID: "Notebook", ArtifactType: domain.ArtifactAnalysis, Summary: "a2",
		Dependencies: []domain.DependencySpec{dep("fastapi", "==0.90", domain.ScopeRuntime)},
	})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)

	updated, err := state.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectInProgress, updated.Status)
}

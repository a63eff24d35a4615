// Package psmp implements the artifact declaration pipeline: persisting
// artifacts, detecting dependency conflicts against a project's live
// artifacts, materializing conflict events, and assembling the unified
// dependency manifest. It depends on statemgr for project status reads and
// transition requests; statemgr never calls back into psmp.
package psmp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/dependency"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/statemgr"
	"github.com/r3e-network/governance-core/internal/storage"
)

// Engine is the PSMP artifact registry and conflict resolver.
type Engine struct {
	backend storage.Backend
	state   *statemgr.Manager
	log     *logger.Logger
	mode    config.GovernanceMode
}

// NewEngine builds an Engine bound to the given storage backend and State
// Manager, operating under the given governance mode.
func NewEngine(backend storage.Backend, state *statemgr.Manager, mode config.GovernanceMode, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("psmp")
	}
	if mode == "" {
		mode = config.ModeAdaptive
	}
	return &Engine{backend: backend, state: state, log: log, mode: mode}
}

// DeclareArtifactRequest is the input to DeclareArtifact. ArtifactID is
// optional; supplying the same id on a retry makes the call idempotent.
type DeclareArtifactRequest struct {
	ArtifactID   string
	ProjectID    string
	AgentID      string
	ArtifactType domain.ArtifactType
	Summary      string
	Dependencies []domain.DependencySpec
}

// DeclareArtifactResult is the output of DeclareArtifact.
type DeclareArtifactResult struct {
	OK        bool
	Artifact  *domain.Artifact
	Conflicts []domain.DependencyConflict
}

var validArtifactTypes = map[domain.ArtifactType]bool{
	domain.ArtifactCode: true, domain.ArtifactConfig: true, domain.ArtifactModel: true,
	domain.ArtifactData: true, domain.ArtifactPlan: true, domain.ArtifactAnalysis: true,
	domain.ArtifactTest: true, domain.ArtifactDocs: true,
}

var validScopes = map[domain.DependencyScope]bool{
	domain.ScopeRuntime: true, domain.ScopeDev: true, domain.ScopeBuild: true,
}

// DeclareArtifact validates and persists an artifact, then runs conflict
// detection against every live artifact of the project.
func (e *Engine) DeclareArtifact(ctx context.Context, req DeclareArtifactRequest) (*DeclareArtifactResult, error) {
	project, err := e.state.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.ProjectBlocked {
		report, _ := e.blockingReport(ctx, project)
		return nil, svcerrors.ProjectBlocked(project.ID, report)
	}

	if req.ArtifactID != "" {
		if existing, err := e.getArtifact(ctx, req.ArtifactID); err == nil {
			return &DeclareArtifactResult{OK: true, Artifact: existing}, nil
		}
	}

	if !validArtifactTypes[req.ArtifactType] {
		return nil, svcerrors.InvalidDeclaration(fmt.Sprintf("unknown artifact type %q", req.ArtifactType))
	}
	if len(req.Summary) > 200 {
		return nil, svcerrors.InvalidDeclaration("content_summary exceeds 200 characters")
	}
	for _, dep := range req.Dependencies {
		if err := validateDependencySpec(dep); err != nil {
			return nil, err
		}
	}

	artifactID := req.ArtifactID
	if artifactID == "" {
		artifactID = uuid.NewString()
	}
	now := time.Now().UTC()
	artifact := &domain.Artifact{
		ID:             artifactID,
		ProjectID:      req.ProjectID,
		AgentID:        req.AgentID,
		ArtifactType:   req.ArtifactType,
		ContentSummary: req.Summary,
		Dependencies:   req.Dependencies,
		CreatedAt:      now,
	}

	if err := e.persistArtifact(ctx, artifact); err != nil {
		return nil, err
	}

	conflicts, err := e.detectConflicts(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	anyCritical := false
	for _, c := range conflicts {
		if err := e.emitConflictDetected(ctx, project.ID, c); err != nil {
			return nil, err
		}
		if c.Severity == domain.SeverityCritical {
			anyCritical = true
		}
	}

	if e.mode == config.ModePlayground {
		anyCritical = false
	}

	if anyCritical {
		if _, err := e.state.TransitionProject(ctx, project.ID, domain.ProjectBlocked, "critical dependency conflict detected"); err != nil {
			if !svcerrors.Is(err, svcerrors.ErrCodeInvalidTransition) {
				return nil, err
			}
		} else if err := e.emitEvent(ctx, project.ID, domain.EventProjectBlocked, "system", map[string]interface{}{
			"conflict_count": len(conflicts),
		}); err != nil {
			return nil, err
		}
	}

	return &DeclareArtifactResult{OK: true, Artifact: artifact, Conflicts: conflicts}, nil
}

func validateDependencySpec(dep domain.DependencySpec) error {
	if dep.Name == "" {
		return svcerrors.InvalidDeclaration("dependency name is empty")
	}
	if _, err := dependency.ParseConstraintSet(dep.VersionConstraint); err != nil {
		return svcerrors.InvalidDeclaration(fmt.Sprintf("unparseable constraint %q: %v", dep.VersionConstraint, err))
	}
	if !validScopes[dep.Scope] {
		return svcerrors.InvalidDeclaration(fmt.Sprintf("unknown scope %q", dep.Scope))
	}
	if dep.Purpose == "" {
		return svcerrors.InvalidDeclaration("dependency purpose is empty")
	}
	return nil
}

func (e *Engine) persistArtifact(ctx context.Context, artifact *domain.Artifact) error {
	artifactData, err := json.Marshal(artifact)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_artifact", err)
	}
	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventArtifactDeclared,
		ProjectID: artifact.ProjectID,
		Timestamp: artifact.CreatedAt,
		Actor:     artifact.AgentID,
		Payload:   map[string]interface{}{"artifact_id": artifact.ID, "artifact_type": string(artifact.ArtifactType)},
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_event", err)
	}

	err = e.backend.Tx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Put(ctx, storage.KindArtifact, artifact.ID, artifactData); err != nil {
			return err
		}
		return tx.Append(ctx, storage.LogPSMPEvents, eventData)
	})
	if err != nil {
		return svcerrors.StorageUnavailable("write_artifact", err)
	}
	return nil
}

func (e *Engine) getArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	data, err := e.backend.Get(ctx, storage.KindArtifact, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, svcerrors.NotFound("artifact", id)
		}
		return nil, svcerrors.StorageUnavailable("get_artifact", err)
	}
	var a domain.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_artifact", err)
	}
	return &a, nil
}

func (e *Engine) liveArtifacts(ctx context.Context, projectID string) ([]domain.Artifact, error) {
	records, err := e.backend.Scan(ctx, storage.KindArtifact, func(id string, data []byte) bool {
		var a domain.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return false
		}
		return a.ProjectID == projectID && !a.Revoked
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_artifacts", err)
	}
	artifacts := make([]domain.Artifact, 0, len(records))
	for _, data := range records {
		var a domain.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, svcerrors.StorageUnavailable("decode_artifact", err)
		}
		artifacts = append(artifacts, a)
	}
	sort.SliceStable(artifacts, func(i, j int) bool { return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt) })
	return artifacts, nil
}

func (e *Engine) emitEvent(ctx context.Context, projectID string, eventType domain.PSMPEventType, actor string, payload map[string]interface{}) error {
	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		ProjectID: projectID,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Payload:   payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_event", err)
	}
	if err := e.backend.Append(ctx, storage.LogPSMPEvents, data); err != nil {
		return svcerrors.StorageUnavailable("append_event", err)
	}
	return nil
}

func (e *Engine) emitConflictDetected(ctx context.Context, projectID string, conflict domain.DependencyConflict) error {
	return e.emitEvent(ctx, projectID, domain.EventConflictDetected, "system", map[string]interface{}{
		"library":  conflict.Library,
		"severity": string(conflict.Severity),
	})
}

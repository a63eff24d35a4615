package psmp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/storage"
)

// resolution records a manual override for one project's library.
// effectiveArtifacts applies it in place of every live declaration of that
// library, including declarations made after the resolution was recorded.
type resolution struct {
	ProjectID        string                 `json:"project_id"`
	Library          string                 `json:"library"`
	ChosenConstraint string                 `json:"chosen_constraint"`
	Scope            domain.DependencyScope `json:"scope"`
	Actor            string                 `json:"actor"`
	ResolvedAt       time.Time              `json:"resolved_at"`
}

func resolutionKey(projectID, library string) string {
	return projectID + "/" + library
}

func (e *Engine) putResolution(ctx context.Context, r resolution) error {
	data, err := json.Marshal(r)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_resolution", err)
	}
	if err := e.backend.Put(ctx, storage.KindResolution, resolutionKey(r.ProjectID, r.Library), data); err != nil {
		return svcerrors.StorageUnavailable("put_resolution", err)
	}
	return nil
}

func (e *Engine) getResolution(ctx context.Context, projectID, library string) (*resolution, error) {
	data, err := e.backend.Get(ctx, storage.KindResolution, resolutionKey(projectID, library))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, svcerrors.StorageUnavailable("get_resolution", err)
	}
	var r resolution
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_resolution", err)
	}
	return &r, nil
}

// resolvedLibraries scans every resolution stored for projectID.
func (e *Engine) resolvedLibraries(ctx context.Context, projectID string) (map[string]resolution, error) {
	prefix := projectID + "/"
	records, err := e.backend.Scan(ctx, storage.KindResolution, func(id string, data []byte) bool {
		return len(id) > len(prefix) && id[:len(prefix)] == prefix
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_resolutions", err)
	}
	out := make(map[string]resolution, len(records))
	for _, data := range records {
		var r resolution
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, svcerrors.StorageUnavailable("decode_resolution", err)
		}
		out[r.Library] = r
	}
	return out, nil
}

// effectiveArtifacts returns projectID's live artifacts with any resolved
// library's declarations collapsed to the single chosen constraint, so a
// resolved conflict does not keep reappearing on the next detection pass.
func (e *Engine) effectiveArtifacts(ctx context.Context, projectID string) ([]domain.Artifact, error) {
	artifacts, err := e.liveArtifacts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	resolutions, err := e.resolvedLibraries(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(resolutions) == 0 {
		return artifacts, nil
	}

	filtered := make([]domain.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		deps := make([]domain.DependencySpec, 0, len(a.Dependencies))
		for _, d := range a.Dependencies {
			if _, resolved := resolutions[d.Name]; !resolved {
				deps = append(deps, d)
			}
		}
		a.Dependencies = deps
		filtered = append(filtered, a)
	}

	override := domain.Artifact{ID: "resolution-overrides", ProjectID: projectID}
	for library, r := range resolutions {
		scope := r.Scope
		if scope == "" {
			scope = domain.ScopeRuntime
		}
		override.Dependencies = append(override.Dependencies, domain.DependencySpec{
			Name:              library,
			VersionConstraint: r.ChosenConstraint,
			Scope:             scope,
			DeclaredByAgent:   r.Actor,
			Purpose:           "resolved",
		})
	}
	return append(filtered, override), nil
}

// declaredScope returns the scope the project's live (unresolved)
// declarations used for library, so a resolved conflict's override
// preserves it instead of defaulting to runtime. Declarations for the same
// library are expected to share a scope; the first match wins.
func (e *Engine) declaredScope(ctx context.Context, projectID, library string) (domain.DependencyScope, error) {
	artifacts, err := e.liveArtifacts(ctx, projectID)
	if err != nil {
		return "", err
	}
	for _, a := range artifacts {
		for _, d := range a.Dependencies {
			if d.Name == library {
				return d.Scope, nil
			}
		}
	}
	return domain.ScopeRuntime, nil
}

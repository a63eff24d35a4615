package psmp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/dependency"
	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
)

// detectConflicts runs conflict detection against projectID's effective
// artifacts (live declarations with resolved libraries collapsed), escalating
// every warning to critical under strict governance mode.
func (e *Engine) detectConflicts(ctx context.Context, projectID string) ([]domain.DependencyConflict, error) {
	artifacts, err := e.effectiveArtifacts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	conflicts, err := dependency.DetectConflicts(artifacts)
	if err != nil {
		return nil, svcerrors.InvalidDeclaration(err.Error())
	}
	if e.mode == config.ModeStrict {
		for i := range conflicts {
			conflicts[i].Severity = domain.SeverityCritical
		}
	}
	return conflicts, nil
}

// BlockingReport is the payload describing a project's unresolved
// conflicts.
type BlockingReport struct {
	ProjectID      string                      `json:"project_id"`
	Status         domain.ProjectStatus        `json:"status"`
	TotalConflicts int                         `json:"total_conflicts"`
	Conflicts      []domain.DependencyConflict `json:"conflicts"`
}

// GetConflicts returns the current blocking report for projectID.
func (e *Engine) GetConflicts(ctx context.Context, projectID string) (*BlockingReport, error) {
	project, err := e.state.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return e.blockingReport(ctx, project)
}

func (e *Engine) blockingReport(ctx context.Context, project *domain.Project) (*BlockingReport, error) {
	conflicts, err := e.detectConflicts(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return &BlockingReport{
		ProjectID:      project.ID,
		Status:         project.Status,
		TotalConflicts: len(conflicts),
		Conflicts:      conflicts,
	}, nil
}

// ManifestEntry is one resolved (library, version range, scope) tuple.
type ManifestEntry struct {
	Library string
	Range   string
	Scope   domain.DependencyScope
}

// GenerateManifest assembles the unified dependency set for projectID,
// failing with ProjectBlocked if any unresolved critical conflict exists.
func (e *Engine) GenerateManifest(ctx context.Context, projectID string) ([]ManifestEntry, error) {
	project, err := e.state.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	conflicts, err := e.detectConflicts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, c := range conflicts {
		if c.Severity == domain.SeverityCritical {
			report, _ := e.blockingReport(ctx, project)
			return nil, svcerrors.ProjectBlocked(projectID, report)
		}
	}

	artifacts, err := e.effectiveArtifacts(ctx, projectID)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		scope   domain.DependencyScope
		library string
	}
	groups := make(map[groupKey]dependency.Range)
	for _, a := range artifacts {
		for _, dep := range a.Dependencies {
			key := groupKey{scope: dep.Scope, library: dep.Name}
			cs, err := dependency.ParseConstraintSet(dep.VersionConstraint)
			if err != nil {
				continue
			}
			r, ok := groups[key]
			if !ok {
				r = dependency.FullRange()
			}
			groups[key] = r.Narrow(cs)
		}
	}

	entries := make([]ManifestEntry, 0, len(groups))
	for key, r := range groups {
		entries = append(entries, ManifestEntry{Library: key.library, Range: renderRange(r), Scope: key.scope})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Scope != entries[j].Scope {
			return scopeRank[entries[i].Scope] < scopeRank[entries[j].Scope]
		}
		return entries[i].Library < entries[j].Library
	})
	return entries, nil
}

// scopeRank orders manifest entries runtime, dev, build.
var scopeRank = map[domain.DependencyScope]int{
	domain.ScopeRuntime: 0,
	domain.ScopeDev:     1,
	domain.ScopeBuild:   2,
}

func renderRange(r dependency.Range) string {
	if r.Pinned != nil {
		return "==" + r.Pinned.String()
	}
	var parts []string
	if r.Min != nil {
		op := ">="
		if !r.MinInclusive {
			op = ">"
		}
		parts = append(parts, op+r.Min.String())
	}
	if r.Max != nil {
		op := "<="
		if !r.MaxInclusive {
			op = "<"
		}
		parts = append(parts, op+r.Max.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ",")
}

// ResolveConflict records a manual resolution for library within projectID,
// unblocking the project if no critical conflicts remain.
func (e *Engine) ResolveConflict(ctx context.Context, projectID, library, chosenConstraint, actor string) (*domain.DependencyConflict, error) {
	conflicts, err := e.detectConflicts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var target *domain.DependencyConflict
	for i := range conflicts {
		if conflicts[i].Library == library {
			target = &conflicts[i]
			break
		}
	}
	if target == nil {
		return nil, svcerrors.NotFound("conflict", library)
	}

	if _, err := dependency.ParseConstraintSet(chosenConstraint); err != nil {
		return nil, svcerrors.InvalidDeclaration(fmt.Sprintf("unparseable constraint %q: %v", chosenConstraint, err))
	}

	scope, err := e.declaredScope(ctx, projectID, library)
	if err != nil {
		return nil, err
	}

	if err := e.putResolution(ctx, resolution{
		ProjectID:        projectID,
		Library:          library,
		ChosenConstraint: chosenConstraint,
		Scope:            scope,
		Actor:            actor,
		ResolvedAt:       time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err := e.emitEvent(ctx, projectID, domain.EventConflictResolved, actor, map[string]interface{}{
		"library": library,
		"chosen":  chosenConstraint,
	}); err != nil {
		return nil, err
	}

	remaining, err := e.detectConflicts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stillCritical := false
	for _, c := range remaining {
		if c.Severity == domain.SeverityCritical {
			stillCritical = true
			break
		}
	}

	if !stillCritical {
		if _, err := e.state.TransitionProject(ctx, projectID, domain.ProjectInProgress, "conflicts resolved"); err == nil {
			if err := e.emitEvent(ctx, projectID, domain.EventProjectUnblocked, actor, nil); err != nil {
				return nil, err
			}
		} else if !svcerrors.Is(err, svcerrors.ErrCodeInvalidTransition) {
			return nil, err
		}
	}

	return target, nil
}

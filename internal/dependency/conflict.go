package dependency

import (
	"fmt"
	"sort"

	"github.com/r3e-network/governance-core/internal/domain"
)

// declaration pairs one DependencySpec with the artifact that declared it,
// needed to order "most recent" tie-breaks and to report agent identity.
type declaration struct {
	spec        domain.DependencySpec
	artifactID  string
	declaredAt  int // monotonic declaration order within the batch, higher = more recent
}

// DetectConflicts groups every live artifact's dependency declarations by
// (scope, library) and returns one DependencyConflict per group whose
// constraints cannot all be satisfied simultaneously, plus warning-level
// conflicts for the same library declared under different scopes.
//
// artifacts must be ordered oldest-first; that order is used to resolve
// "most recent artifact" tie-breaks.
func DetectConflicts(artifacts []domain.Artifact) ([]domain.DependencyConflict, error) {
	bySourceKey := make(map[string][]declaration)
	order := 0
	for _, a := range artifacts {
		if a.Revoked {
			continue
		}
		for _, dep := range a.Dependencies {
			key := string(dep.Scope) + "\x00" + dep.Name
			bySourceKey[key] = append(bySourceKey[key], declaration{spec: dep, artifactID: a.ID, declaredAt: order})
			order++
		}
	}

	var conflicts []domain.DependencyConflict
	byLibraryAllScopes := make(map[string][]declaration)

	keys := make([]string, 0, len(bySourceKey))
	for k := range bySourceKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		decls := bySourceKey[key]
		for _, d := range decls {
			byLibraryAllScopes[d.spec.Name] = append(byLibraryAllScopes[d.spec.Name], d)
		}
		if len(decls) < 2 {
			continue
		}
		conflict, found, err := detectGroupConflict(decls)
		if err != nil {
			return nil, err
		}
		if found {
			conflicts = append(conflicts, conflict)
		}
	}

	conflicts = append(conflicts, detectCrossScopeConflicts(byLibraryAllScopes, bySourceKey)...)

	return conflicts, nil
}

func detectGroupConflict(decls []declaration) (domain.DependencyConflict, bool, error) {
	library := decls[0].spec.Name
	r := FullRange()
	for _, d := range decls {
		cs, err := ParseConstraintSet(d.spec.VersionConstraint)
		if err != nil {
			return domain.DependencyConflict{}, false, fmt.Errorf("dependency: %s: %w", library, err)
		}
		r = r.Narrow(cs)
	}

	empty, pinBoundaryOnly := r.Empty()
	if !empty {
		return domain.DependencyConflict{}, false, nil
	}

	severity := domain.SeverityCritical
	if pinBoundaryOnly {
		severity = domain.SeverityWarning
	}

	return buildConflict(library, decls, severity), true, nil
}

// detectCrossScopeConflicts reports a warning, separate from the per-scope
// critical check above, when the same library is declared under more than
// one scope with mutually incompatible constraints.
func detectCrossScopeConflicts(byLibrary map[string][]declaration, bySourceKey map[string][]declaration) []domain.DependencyConflict {
	var out []domain.DependencyConflict
	libraries := make([]string, 0, len(byLibrary))
	for lib := range byLibrary {
		libraries = append(libraries, lib)
	}
	sort.Strings(libraries)

	for _, lib := range libraries {
		decls := byLibrary[lib]
		scopes := make(map[domain.DependencyScope]bool)
		for _, d := range decls {
			scopes[d.spec.Scope] = true
		}
		if len(scopes) < 2 {
			continue
		}

		r := FullRange()
		parseErr := false
		for _, d := range decls {
			cs, err := ParseConstraintSet(d.spec.VersionConstraint)
			if err != nil {
				parseErr = true
				break
			}
			r = r.Narrow(cs)
		}
		if parseErr {
			continue
		}
		if empty, _ := r.Empty(); empty {
			// Already reported as critical within its own scope group if
			// that group alone was incompatible; only add the cross-scope
			// warning when no single scope's own group already conflicted.
			if anyScopeGroupConflicts(lib, scopes, bySourceKey) {
				continue
			}
			out = append(out, buildConflict(lib, decls, domain.SeverityWarning))
		}
	}
	return out
}

func anyScopeGroupConflicts(library string, scopes map[domain.DependencyScope]bool, bySourceKey map[string][]declaration) bool {
	for scope := range scopes {
		key := string(scope) + "\x00" + library
		decls := bySourceKey[key]
		if len(decls) < 2 {
			continue
		}
		if _, found, err := detectGroupConflict(decls); err == nil && found {
			return true
		}
	}
	return false
}

func buildConflict(library string, decls []declaration, severity domain.ConflictSeverity) domain.DependencyConflict {
	requirements := make([]domain.ConflictRequirement, 0, len(decls))
	for _, d := range decls {
		requirements = append(requirements, domain.ConflictRequirement{
			Agent:   d.spec.DeclaredByAgent,
			Needs:   d.spec.VersionConstraint,
			Purpose: d.spec.Purpose,
		})
	}

	mostRecent := decls[0]
	for _, d := range decls {
		if d.declaredAt > mostRecent.declaredAt {
			mostRecent = d
		}
	}

	return domain.DependencyConflict{
		Library:      library,
		Requirements: requirements,
		Severity:     severity,
		SuggestedResolutions: []string{
			fmt.Sprintf("relax to the union range of all declared minimums for %s", library),
			fmt.Sprintf("standardize on %s as declared by the most recent artifact (%s)", mostRecent.spec.VersionConstraint, mostRecent.artifactID),
			fmt.Sprintf("isolate %s in a separate environment", library),
			fmt.Sprintf("introduce a compatibility shim for %s", library),
		},
	}
}

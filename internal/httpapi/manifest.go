package httpapi

import (
	"fmt"
	"strings"

	"github.com/r3e-network/governance-core/internal/domain"
	"github.com/r3e-network/governance-core/internal/psmp"
)

var scopeHeader = map[domain.DependencyScope]string{
	domain.ScopeRuntime: "# runtime",
	domain.ScopeDev:     "# dev",
	domain.ScopeBuild:   "# build",
}

// renderManifestText renders psmp.GenerateManifest's already-sorted entries
// as a flat text format: one line per (library, constraint, scope), with
// a scope header comment whenever the scope changes.
func renderManifestText(entries []psmp.ManifestEntry) string {
	var b strings.Builder
	var currentScope domain.DependencyScope
	first := true
	for _, e := range entries {
		if first || e.Scope != currentScope {
			if !first {
				b.WriteString("\n")
			}
			b.WriteString(scopeHeader[e.Scope])
			b.WriteString("\n")
			currentScope = e.Scope
			first = false
		}
		fmt.Fprintf(&b, "%s %s\n", e.Library, e.Range)
	}
	return b.String()
}

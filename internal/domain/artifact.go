package domain

import "time"

// ArtifactType names the kind of output an agent declares.
type ArtifactType string

const (
	ArtifactCode     ArtifactType = "code"
	ArtifactConfig   ArtifactType = "config"
	ArtifactModel    ArtifactType = "model"
	ArtifactData     ArtifactType = "data"
	ArtifactPlan     ArtifactType = "plan"
	ArtifactAnalysis ArtifactType = "analysis"
	ArtifactTest     ArtifactType = "test"
	ArtifactDocs     ArtifactType = "docs"
)

// DependencyScope classifies a DependencySpec's intended use.
type DependencyScope string

const (
	ScopeRuntime DependencyScope = "RUNTIME"
	ScopeDev     DependencyScope = "DEV"
	ScopeBuild   DependencyScope = "BUILD"
)

// DependencySpec is one dependency declaration attached to an Artifact.
type DependencySpec struct {
	Name              string
	VersionConstraint string
	Scope             DependencyScope
	DeclaredByAgent   string
	Purpose           string
}

// Artifact is an immutable output declared by an agent. New versions of the
// same logical output are new artifacts, never in-place edits.
type Artifact struct {
	ID             string
	ProjectID      string
	AgentID        string
	ArtifactType   ArtifactType
	ContentSummary string
	Dependencies   []DependencySpec
	Metadata       map[string]string
	CreatedAt      time.Time
	Revoked        bool
}

// ConflictSeverity classifies a DependencyConflict.
type ConflictSeverity string

const (
	SeverityWarning  ConflictSeverity = "warning"
	SeverityCritical ConflictSeverity = "critical"
)

// ConflictRequirement is one agent's declared need for a library, surfaced
// in a DependencyConflict's requirement list and the blocking report.
type ConflictRequirement struct {
	Agent   string
	Needs   string
	Purpose string
}

// DependencyConflict is derived, never stored standalone; it is
// materialized into PSMPEvent payloads and blocking reports.
type DependencyConflict struct {
	Library              string
	Requirements         []ConflictRequirement
	Severity             ConflictSeverity
	SuggestedResolutions []string
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r3e-network/governance-core/internal/domain"
	"github.com/r3e-network/governance-core/internal/psmp"
)

type dependencySpecRequest struct {
	Name              string `json:"name" binding:"required"`
	VersionConstraint string `json:"version_constraint" binding:"required"`
	Scope             string `json:"scope" binding:"required"`
	DeclaredByAgent   string `json:"declared_by_agent"`
	Purpose           string `json:"purpose"`
}

type declareArtifactRequest struct {
	ArtifactID   string                  `json:"artifact_id"`
	ProjectID    string                  `json:"project_id" binding:"required"`
	AgentID      string                  `json:"agent_id" binding:"required"`
	ArtifactType string                  `json:"artifact_type" binding:"required"`
	Summary      string                  `json:"summary"`
	Dependencies []dependencySpecRequest `json:"dependencies"`
}

func (s *Server) declareArtifact(c *gin.Context) {
	var req declareArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deps := make([]domain.DependencySpec, 0, len(req.Dependencies))
	for _, d := range req.Dependencies {
		deps = append(deps, domain.DependencySpec{
			Name:              d.Name,
			VersionConstraint: d.VersionConstraint,
			Scope:             domain.DependencyScope(d.Scope),
			DeclaredByAgent:   d.DeclaredByAgent,
			Purpose:           d.Purpose,
		})
	}

	result, err := s.psmp.DeclareArtifact(ctxWithRequest(c), psmp.DeclareArtifactRequest{
		ArtifactID:   req.ArtifactID,
		ProjectID:    req.ProjectID,
		AgentID:      req.AgentID,
		ArtifactType: domain.ArtifactType(req.ArtifactType),
		Summary:      req.Summary,
		Dependencies: deps,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artifact_id": result.Artifact.ID,
		"accepted":    result.OK,
		"conflicts":   result.Conflicts,
	})
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r3e-network/governance-core/internal/domain"
)

type createProjectRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := s.state.CreateProject(ctxWithRequest(c), req.Name, req.Description, req.Metadata)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": project.ID, "status": project.Status})
}

type transitionRequest struct {
	NewStatus string `json:"new_status" binding:"required"`
	Reason    string `json:"reason"`
}

func (s *Server) transitionProject(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := s.state.TransitionProject(ctxWithRequest(c), c.Param("id"), domain.ProjectStatus(req.NewStatus), req.Reason)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": project.Status})
}

func (s *Server) getConflicts(c *gin.Context) {
	report, err := s.psmp.GetConflicts(ctxWithRequest(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) getManifest(c *gin.Context) {
	entries, err := s.psmp.GenerateManifest(ctxWithRequest(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.String(http.StatusOK, renderManifestText(entries))
}

type resolveConflictRequest struct {
	Library          string `json:"library" binding:"required"`
	ChosenConstraint string `json:"chosen_constraint" binding:"required"`
	Actor            string `json:"actor"`
}

func (s *Server) resolveConflict(c *gin.Context) {
	var req resolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflict, err := s.psmp.ResolveConflict(ctxWithRequest(c), c.Param("id"), req.Library, req.ChosenConstraint, req.Actor)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, conflict)
}

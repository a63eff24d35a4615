package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r3e-network/governance-core/internal/llmgateway"
	"github.com/r3e-network/governance-core/internal/securegw"
)

type classifyRequest struct {
	AgentName        string `json:"agent_name"`
	TaskType         string `json:"task_type"`
	HasSensitiveData bool   `json:"has_sensitive_data"`
	HasPrivateData   bool   `json:"has_private_data"`
	IsSecurityTask   bool   `json:"is_security_task"`
	Organization     string `json:"organization"`
}

func (req classifyRequest) toClassifyRequest() securegw.ClassifyRequest {
	return securegw.ClassifyRequest{
		AgentName: req.AgentName, TaskType: req.TaskType,
		HasSensitiveData: req.HasSensitiveData, HasPrivateData: req.HasPrivateData,
		IsSecurityTask: req.IsSecurityTask, Organization: req.Organization,
	}
}

func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := s.gateway.ClassifyAndSelect(ctxWithRequest(c), req.toClassifyRequest())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sensitivity":       decision.Sensitivity.String(),
		"selected_provider": decision.SelectedProvider,
		"policy_decision":   decision.PolicyDecision,
	})
}

type generateRequest struct {
	classifyRequest
	Prompt       string  `json:"prompt" binding:"required"`
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := s.gateway.ClassifyAndSelect(ctxWithRequest(c), req.toClassifyRequest())
	if err != nil {
		errorResponse(c, err)
		return
	}

	resp, err := s.llm.Dispatch(ctxWithRequest(c), llmgateway.DispatchRequest{
		ProviderCandidates: []string{decision.SelectedProvider},
		Model:              req.Model,
		Prompt:             req.Prompt,
		SystemPrompt:       req.SystemPrompt,
		Temperature:        req.Temperature,
		MaxTokens:          req.MaxTokens,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

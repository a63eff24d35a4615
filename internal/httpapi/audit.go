package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r3e-network/governance-core/internal/auditor"
	"github.com/r3e-network/governance-core/internal/domain"
)

func parseWindow(c *gin.Context) auditor.Window {
	var w auditor.Window
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			w.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			w.To = t
		}
	}
	return w
}

func parseFilters(c *gin.Context) auditor.Filters {
	f := auditor.Filters{
		Agent:      c.Query("agent"),
		Provider:   c.Query("provider"),
		PolicyName: c.Query("policy_name"),
	}
	if raw := c.Query("sensitivity"); raw != "" {
		if s, ok := parseSensitivity(raw); ok {
			f.Sensitivity = &s
		}
	}
	return f
}

func parseSensitivity(raw string) (domain.Sensitivity, bool) {
	switch raw {
	case "PUBLIC":
		return domain.SensitivityPublic, true
	case "INTERNAL":
		return domain.SensitivityInternal, true
	case "SENSITIVE":
		return domain.SensitivitySensitive, true
	case "CRITICAL":
		return domain.SensitivityCritical, true
	default:
		return 0, false
	}
}

func (s *Server) queryAudit(c *gin.Context) {
	org := c.Query("organization")
	if org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization is required"})
		return
	}

	entries, err := s.audit.Query(ctxWithRequest(c), org, parseWindow(c), parseFilters(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) summarizeAudit(c *gin.Context) {
	org := c.Query("organization")
	if org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization is required"})
		return
	}

	summary, err := s.audit.Summarize(ctxWithRequest(c), org, parseWindow(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

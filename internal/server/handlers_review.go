package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aivoralabs/auditlens/internal/repository"
)

// ListMatches handles GET /api/matches
func (h *Handlers) ListMatches(c *gin.Context) {
	matches, summary, err := h.svc.ListMatches(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list matches")
		return
	}
	h.ok(c, gin.H{"matches": matches, "summary": summary})
}

// ApproveMatch handles POST /api/matches/:id/approve
func (h *Handlers) ApproveMatch(c *gin.Context) {
	match, err := h.svc.ApproveMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "match")
		return
	}
	h.ok(c, match)
}

// RejectMatch handles POST /api/matches/:id/reject
func (h *Handlers) RejectMatch(c *gin.Context) {
	if err := h.svc.RejectMatch(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "match")
		return
	}
	h.ok(c, gin.H{"rejected": true})
}

// ListAnomalies handles GET /api/anomalies
func (h *Handlers) ListAnomalies(c *gin.Context) {
	anomalies, summary, err := h.svc.ListAnomalies(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list anomalies")
		return
	}
	h.ok(c, gin.H{"anomalies": anomalies, "summary": summary})
}

// ResolveAnomaly handles POST /api/anomalies/:id/resolve
func (h *Handlers) ResolveAnomaly(c *gin.Context) {
	anomaly, err := h.svc.ResolveAnomaly(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "anomaly")
		return
	}
	h.ok(c, anomaly)
}

// DismissAnomaly handles POST /api/anomalies/:id/dismiss
func (h *Handlers) DismissAnomaly(c *gin.Context) {
	anomaly, err := h.svc.DismissAnomaly(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "anomaly")
		return
	}
	h.ok(c, anomaly)
}

// ListTriageDecisions handles GET /api/triage
func (h *Handlers) ListTriageDecisions(c *gin.Context) {
	decisions, err := h.svc.ListTriageDecisions(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list triage decisions")
		return
	}
	h.ok(c, decisions)
}

// GetTriageDecision handles GET /api/invoices/:id/triage
func (h *Handlers) GetTriageDecision(c *gin.Context) {
	decision, err := h.svc.GetTriageDecision(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "triage decision")
		return
	}
	h.ok(c, decision)
}

// RetriageInvoice handles POST /api/invoices/:id/triage
func (h *Handlers) RetriageInvoice(c *gin.Context) {
	decision, err := h.svc.RetriageInvoice(c.Request.Context(), c.Param("id"), activeRole(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(c, err, "invoice")
			return
		}
		h.badRequest(c, err.Error())
		return
	}
	h.ok(c, decision)
}

// OverrideRequest carries a manual lane override for a triaged invoice
type OverrideRequest struct {
	Lane   string `json:"lane" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor"`
}

// OverrideTriage handles POST /api/triage/:id/override
func (h *Handlers) OverrideTriage(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid override request: "+err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = activeRole(c)
	}

	decision, err := h.svc.OverrideTriage(c.Request.Context(), c.Param("id"), req.Lane, req.Reason, req.Actor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(c, err, "triage decision")
			return
		}
		h.badRequest(c, err.Error())
		return
	}
	h.ok(c, decision)
}

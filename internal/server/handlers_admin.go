package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/export"
	"github.com/aivoralabs/auditlens/internal/policy"
)

// ListVendorProfiles handles GET /api/vendors
func (h *Handlers) ListVendorProfiles(c *gin.Context) {
	profiles, err := h.svc.ListVendorProfiles(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list vendor profiles")
		return
	}
	h.ok(c, profiles)
}

// GetVendorRisk handles GET /api/vendors/:name/risk. The profile is
// recomputed from the vendor's current history rather than served from
// the cached row.
func (h *Handlers) GetVendorRisk(c *gin.Context) {
	profile, err := h.svc.GetVendorProfile(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err, "failed to score vendor")
		return
	}
	h.ok(c, profile)
}

// ListCorrectionPatterns handles GET /api/correction-patterns
func (h *Handlers) ListCorrectionPatterns(c *gin.Context) {
	patterns, err := h.svc.ListCorrectionPatterns(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list correction patterns")
		return
	}
	h.ok(c, patterns)
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	dashboard, err := h.svc.BuildDashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to build dashboard")
		return
	}
	h.ok(c, dashboard)
}

// GetPolicy handles GET /api/policy
func (h *Handlers) GetPolicy(c *gin.Context) {
	h.ok(c, h.svc.Policy())
}

// ListPolicyPresets handles GET /api/policy/presets
func (h *Handlers) ListPolicyPresets(c *gin.Context) {
	presets := policy.Presets()
	summaries := make([]gin.H, 0, len(presets))
	for _, name := range []string{"enterprise_default", "manufacturing", "services", "strict_audit"} {
		p, found := presets[name]
		if !found {
			continue
		}
		summaries = append(summaries, gin.H{
			"name":        name,
			"description": p.Description,
		})
	}
	h.ok(c, summaries)
}

// UpdatePolicy handles PUT /api/policy. Unknown keys and out-of-range
// values are skipped, and the applied keys are reported back.
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	var changes map[string]interface{}
	if err := c.ShouldBindJSON(&changes); err != nil {
		h.badRequest(c, "invalid policy update: "+err.Error())
		return
	}
	if len(changes) == 0 {
		h.badRequest(c, "empty policy update")
		return
	}

	updated, applied := h.svc.UpdatePolicy(changes)
	h.ok(c, gin.H{"policy": updated, "applied": applied})
}

// ApplyPolicyPreset handles POST /api/policy/preset/:name
func (h *Handlers) ApplyPolicyPreset(c *gin.Context) {
	updated, err := h.svc.ApplyPolicyPreset(c.Param("name"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	h.ok(c, updated)
}

// ExportJSON handles GET /api/export
func (h *Handlers) ExportJSON(c *gin.Context) {
	snap, err := h.svc.ExportSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err, "export failed")
		return
	}
	h.ok(c, gin.H{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"documents":   snap.Documents,
		"matches":     snap.Matches,
		"anomalies":   snap.Anomalies,
		"triage":      snap.Decisions,
	})
}

// ExportXLSX handles GET /api/export/xlsx and streams a workbook
func (h *Handlers) ExportXLSX(c *gin.Context) {
	snap, err := h.svc.ExportSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err, "export failed")
		return
	}

	workbook, err := export.Workbook(snap)
	if err != nil {
		h.fail(c, err, "failed to build workbook")
		return
	}
	defer workbook.Close()

	fileName := fmt.Sprintf("auditlens_export_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if _, err := workbook.WriteTo(c.Writer); err != nil {
		h.logger.Error("Failed to stream workbook", zap.Error(err))
	}
}

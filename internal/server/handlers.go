package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/repository"
	"github.com/aivoralabs/auditlens/internal/service"
)

// maxUploadBytes caps the size of a single uploaded document
const maxUploadBytes = 32 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	svc    *service.AuditService
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *service.AuditService, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// activeRole reads the caller's role from the X-User-Role header
func activeRole(c *gin.Context) string {
	role := c.GetHeader("X-User-Role")
	if role == "" {
		return policy.DefaultRole
	}
	return role
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps a service error onto the right status code
func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: msg + ": not found"})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: msg})
}

// HealthCheck handles GET /api/health
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// Upload handles POST /api/upload. The document file comes in as
// multipart form data with an optional document_type override.
func (h *Handlers) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "missing file in upload")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		h.badRequest(c, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, err, "failed to read upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, err, "failed to read upload")
		return
	}

	typeOverride := c.PostForm("document_type")
	if typeOverride != "" && !validDocumentTypes[typeOverride] {
		h.badRequest(c, "unknown document_type: "+typeOverride)
		return
	}

	result, err := h.svc.Upload(c.Request.Context(), fileHeader.Filename, content, typeOverride, activeRole(c))
	if err != nil {
		h.fail(c, err, "upload processing failed")
		return
	}

	h.ok(c, result)
}

var validDocumentTypes = map[string]bool{
	entity.DocTypeInvoice:       true,
	entity.DocTypePurchaseOrder: true,
	entity.DocTypeContract:      true,
	entity.DocTypeCreditNote:    true,
	entity.DocTypeDebitNote:     true,
	entity.DocTypeGoodsReceipt:  true,
}

// ListDocuments handles GET /api/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list documents")
		return
	}
	h.ok(c, docs)
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "document")
		return
	}
	h.ok(c, doc)
}

func (h *Handlers) listByType(c *gin.Context, docType string) {
	docs, err := h.svc.ListByType(c.Request.Context(), docType)
	if err != nil {
		h.fail(c, err, "failed to list "+docType+" documents")
		return
	}
	h.ok(c, docs)
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	h.listByType(c, entity.DocTypeInvoice)
}

// ListPurchaseOrders handles GET /api/purchase-orders
func (h *Handlers) ListPurchaseOrders(c *gin.Context) {
	h.listByType(c, entity.DocTypePurchaseOrder)
}

// ListContracts handles GET /api/contracts
func (h *Handlers) ListContracts(c *gin.Context) {
	h.listByType(c, entity.DocTypeContract)
}

// ListGoodsReceipts handles GET /api/goods-receipts
func (h *Handlers) ListGoodsReceipts(c *gin.Context) {
	h.listByType(c, entity.DocTypeGoodsReceipt)
}

// EditFieldsRequest carries manual corrections for a document
type EditFieldsRequest struct {
	Fields   map[string]interface{} `json:"fields" binding:"required"`
	EditedBy string                 `json:"edited_by"`
}

// EditFields handles POST /api/documents/:id/edit-fields
func (h *Handlers) EditFields(c *gin.Context) {
	var req EditFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid edit request: "+err.Error())
		return
	}
	if req.EditedBy == "" {
		req.EditedBy = "reviewer"
	}

	doc, err := h.svc.EditFields(c.Request.Context(), c.Param("id"), req.Fields, req.EditedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(c, err, "document")
			return
		}
		h.badRequest(c, err.Error())
		return
	}
	h.ok(c, doc)
}

// UpdateStatusRequest carries an invoice lifecycle transition
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateInvoiceStatus handles POST /api/invoices/:id/status
func (h *Handlers) UpdateInvoiceStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid status request: "+err.Error())
		return
	}

	doc, err := h.svc.UpdateInvoiceStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.fail(c, err, "invoice")
			return
		}
		h.badRequest(c, err.Error())
		return
	}
	h.ok(c, doc)
}

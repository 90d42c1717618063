package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/registry/service"
	"go.uber.org/zap"
)

// EvidenceHandler handles HTTP requests for the evidence ledger.
type EvidenceHandler struct {
	svc    *service.EvidenceService
	logger *zap.Logger
}

// NewEvidenceHandler creates a new EvidenceHandler.
func NewEvidenceHandler(svc *service.EvidenceService, logger *zap.Logger) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, logger: logger}
}

// Register mounts the evidence routes on the given router group.
func (h *EvidenceHandler) Register(rg *gin.RouterGroup) {
	ev := rg.Group("/evidence")
	{
		ev.POST("", h.LogEvidence)
		ev.GET("", h.ListEvidence)
	}
}

// LogEvidence handles POST /evidence — binds a proof record to an existing
// asset version.
func (h *EvidenceHandler) LogEvidence(c *gin.Context) {
	var req model.LogEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.svc.LogEvidence(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	RecordEvidenceLogged()
	c.JSON(http.StatusCreated, e)
}

// ListEvidence handles GET /evidence?asset_id=...&sequence=... — evidence for
// one asset in submission order, optionally filtered to one version.
func (h *EvidenceHandler) ListEvidence(c *gin.Context) {
	assetID := c.Query("asset_id")
	if assetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_id is required"})
		return
	}

	var sequence *int
	if s := c.Query("sequence"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sequence must be a non-negative integer"})
			return
		}
		sequence = &n
	}

	records, err := h.svc.ListEvidence(c.Request.Context(), assetID, sequence)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if records == nil {
		records = []*model.Evidence{}
	}
	c.JSON(http.StatusOK, gin.H{"evidence": records})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/landtruth/registry/internal/registry/model"
	"github.com/landtruth/registry/internal/registry/service"
	"go.uber.org/zap"
)

// AssetHandler handles HTTP requests for asset registration, version
// appends, and the timeline projection.
type AssetHandler struct {
	assets   *service.AssetService
	timeline *service.TimelineService
	logger   *zap.Logger
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assets *service.AssetService, timeline *service.TimelineService, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{assets: assets, timeline: timeline, logger: logger}
}

// Register mounts the asset routes on the given router group.
func (h *AssetHandler) Register(rg *gin.RouterGroup) {
	assets := rg.Group("/assets")
	{
		assets.POST("", h.CreateAsset)
		assets.GET("", h.ListAssets)
		assets.GET("/:id", h.GetAsset)
		assets.POST("/:id/versions", h.AppendVersion)
		assets.GET("/:id/versions", h.ListVersions)
		assets.GET("/:id/verify", h.VerifyAsset)
		assets.GET("/:id/timeline", h.GetTimeline)
	}
}

// CreateAsset handles POST /assets — registers an asset with its genesis version.
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req model.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, genesis, err := h.assets.CreateAsset(c.Request.Context(), req.AssetID, req.Payload)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	RecordAssetCreated()
	c.JSON(http.StatusCreated, gin.H{
		"asset":   asset,
		"genesis": genesis,
	})
}

// ListAssets handles GET /assets with limit/offset pagination.
func (h *AssetHandler) ListAssets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assets, err := h.assets.ListAssets(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// GetAsset handles GET /assets/:id.
func (h *AssetHandler) GetAsset(c *gin.Context) {
	asset, err := h.assets.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// AppendVersion handles POST /assets/:id/versions — appends one version on
// top of the expected sequence supplied by the caller.
func (h *AssetHandler) AppendVersion(c *gin.Context) {
	var req model.AppendVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExpectedSequence == nil || *req.ExpectedSequence < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected_sequence must be a non-negative integer"})
		return
	}

	v, err := h.assets.AppendVersion(c.Request.Context(), c.Param("id"), *req.ExpectedSequence, req.Payload)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	RecordVersionAppended()
	c.JSON(http.StatusCreated, v)
}

// ListVersions handles GET /assets/:id/versions.
func (h *AssetHandler) ListVersions(c *gin.Context) {
	versions, err := h.assets.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// VerifyAsset handles GET /assets/:id/verify — walks the asset's chain and
// reports integrity.
func (h *AssetHandler) VerifyAsset(c *gin.Context) {
	if err := h.assets.VerifyAsset(c.Request.Context(), c.Param("id")); err != nil {
		if model.IsIntegrity(err) {
			c.JSON(http.StatusOK, gin.H{
				"valid": false,
				"error": err.Error(),
			})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// GetTimeline handles GET /assets/:id/timeline — the merged chronological
// view of versions and evidence.
func (h *AssetHandler) GetTimeline(c *gin.Context) {
	events, err := h.timeline.GetTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []model.TimelineEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

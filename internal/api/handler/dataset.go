package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/legoreviews/internal/api/middleware"
	"github.com/timmy/legoreviews/internal/repository"
	"github.com/timmy/legoreviews/internal/service"
)

// DatasetHandler serves the review dataset to the dashboard.
type DatasetHandler struct {
	dataset *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler.
// Parameters:
//   - dataset: dataset service instance.
// Returns:
//   - *DatasetHandler: initialized handler.
func NewDatasetHandler(dataset *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{dataset: dataset}
}

// GetStats handles GET /api/v1/stats.
func (h *DatasetHandler) GetStats(c *gin.Context) {
	stats, err := h.dataset.Stats(c.Request.Context())
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to load stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load stats",
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListSets handles GET /api/v1/sets.
// Parameters:
//   - c: Gin request context; reads theme, limit and offset query params.
// Returns: none (writes JSON response).
func (h *DatasetHandler) ListSets(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.dataset.ListSets(c.Request.Context(), c.Query("theme"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list sets: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSet handles GET /api/v1/sets/:number.
func (h *DatasetHandler) GetSet(c *gin.Context) {
	set, err := h.dataset.GetSet(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, service.ErrSetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Set not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load set: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, set)
}

// ListVideos handles GET /api/v1/videos.
// Parameters:
//   - c: Gin request context; reads set, uploader, limit and offset query params.
// Returns: none (writes JSON response).
func (h *DatasetHandler) ListVideos(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.dataset.ListVideos(c.Request.Context(), repository.VideoFilter{
		LegoNumber: c.Query("set"),
		Uploader:   c.Query("uploader"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list videos: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVideo handles GET /api/v1/videos/:id.
func (h *DatasetHandler) GetVideo(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Video ID is required",
		})
		return
	}

	video, err := h.dataset.GetVideo(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Video not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load video: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, video)
}

// pageParams parses limit and offset, writing a 400 on malformed values.
func pageParams(c *gin.Context) (int, int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, 0, false
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return 0, 0, false
	}
	return limit, offset, true
}

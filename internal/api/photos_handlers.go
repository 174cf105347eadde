package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zzenonn/partyphoto/internal/domain"
	"github.com/zzenonn/partyphoto/internal/service"
)

type softDeleteRequest struct {
	PartyKey string `json:"partyKey"`
	PhotoKey string `json:"photoKey"`
}

func (h *Handler) listPhotos(c *gin.Context) {
	query := domain.ListPhotosQuery{
		PartyKey: c.Query("partyKey"),
		Cursor:   c.Query("cursor"),
		Limit:    service.ParseLimit(c.Query("limit")),
	}

	list, err := h.photos.ListPhotos(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "Failed to retrieve photos")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) batchUpload(c *gin.Context) {
	var req domain.BatchUploadRequest
	if !decodeJSON(c, &req) {
		return
	}

	result, err := h.photos.BatchUpload(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) softDeletePhoto(c *gin.Context) {
	var req softDeleteRequest
	if !decodeJSON(c, &req) {
		return
	}

	if err := h.photos.SoftDeletePhoto(c.Request.Context(), req.PartyKey, req.PhotoKey); err != nil {
		respondError(c, err, "Failed to soft-delete photo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Photo soft-deleted successfully"})
}

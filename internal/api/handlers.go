// Package api exposes the hierarchy engine over HTTP. Every route under
// /api/files requires a valid bearer token, and the authenticated user id is
// the owner for all engine calls, so one user can never address another
// user's tree.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

type FileHandler struct {
	svc *hierarchy.Service
	m   *metrics.DriveMetrics
	log *zap.Logger
}

func NewFileHandler(svc *hierarchy.Service, m *metrics.DriveMetrics, log *zap.Logger) *FileHandler {
	return &FileHandler{svc: svc, m: m, log: log}
}

// owner returns the authenticated user's id as the engine owner.
func owner(c *gin.Context) metadata.OwnerID {
	return metadata.OwnerID(c.GetString("userID"))
}

// nodeJSON shapes a node for responses.
func nodeJSON(n *metadata.FileNode) gin.H {
	var parentID *string
	if n.Parent != nil {
		s := string(*n.Parent)
		parentID = &s
	}
	return gin.H{
		"id":         n.ID,
		"name":       n.Name,
		"kind":       n.Kind.String(),
		"parent_id":  parentID,
		"created_at": n.CreatedAt,
		"updated_at": n.UpdatedAt,
	}
}

// respondError maps engine errors to HTTP responses. Not-found and
// unauthorized collapse into the same 404 so responses never reveal whether
// a node exists under another owner. Anything unrecognized is a storage
// failure: logged in full, reported generically.
func (h *FileHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, hierarchy.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid path"})
	case errors.Is(err, hierarchy.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Name already exists"})
	case errors.Is(err, hierarchy.ErrNotFound), errors.Is(err, hierarchy.ErrUnauthorized):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, hierarchy.ErrInconsistent):
		h.m.RecordInconsistency()
		h.log.Error("storage inconsistency",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ListFiles handles GET /api/files - list every node the user owns.
func (h *FileHandler) ListFiles(c *gin.Context) {
	nodes, err := h.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	files := make([]gin.H, len(nodes))
	for i, n := range nodes {
		files[i] = nodeJSON(n)
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"total": len(files),
	})
}

// UploadFile handles POST /api/files/upload - multipart upload of one file
// into the folder named by the "path" form field, creating missing folders.
func (h *FileHandler) UploadFile(c *gin.Context) {
	folderPath := c.PostForm("path")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer src.Close()

	ctx := c.Request.Context()

	staged, err := h.svc.Stage(ctx, src)
	if err != nil {
		h.respondError(c, err)
		return
	}

	node, err := h.svc.Place(ctx, owner(c), staged, file.Filename, folderPath)
	if err != nil {
		if dErr := h.svc.DiscardStaged(ctx, staged); dErr != nil {
			h.log.Warn("failed to discard staged upload", zap.Error(dErr))
		}
		h.respondError(c, err)
		return
	}

	h.m.RecordUpload()
	c.JSON(http.StatusOK, gin.H{"file": nodeJSON(node)})
}

// CreatePathRequest represents a folder creation request
type CreatePathRequest struct {
	Path string `json:"path" binding:"required"`
}

// CreatePath handles POST /api/files/path - create a folder chain.
func (h *FileHandler) CreatePath(c *gin.Context) {
	var req CreatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.svc.CreatePath(c.Request.Context(), owner(c), req.Path)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if node == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path has no segments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"folder": nodeJSON(node)})
}

// DeleteFile handles DELETE /api/files/:id - delete a node and, for a
// folder, everything beneath it. Deleting an already absent node succeeds.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	id := metadata.NodeID(c.Param("id"))

	removed, err := h.svc.DeleteSubtree(c.Request.Context(), owner(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.m.RecordNodesRemoved(removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// DownloadFile handles GET /api/files/:id/download - stream a file's bytes.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	id := metadata.NodeID(c.Param("id"))

	node, r, err := h.svc.OpenFile(c.Request.Context(), owner(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer r.Close()

	h.m.RecordDownload()
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="`+node.Name+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", r, nil)
}

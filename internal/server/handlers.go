package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apache/age-viewer/backend/internal/graph"
	"github.com/apache/age-viewer/backend/internal/service"
	"github.com/apache/age-viewer/backend/internal/upload"
)

// APIHandlers exposes HTTP handlers for the viewer API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.DatabaseService
	uploads *upload.Store
}

// NewAPIHandlers constructs an APIHandlers instance. uploads may be nil,
// which disables the certificate upload endpoint.
func NewAPIHandlers(logger *slog.Logger, svc *service.DatabaseService, uploads *upload.Store) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
		uploads: uploads,
	}
}

func (h *APIHandlers) register(r gin.IRoutes) {
	r.GET("/db", h.status)
	r.POST("/db/connect", h.connect)
	r.GET("/db/disconnect", h.disconnect)
	r.POST("/db/meta", h.metadata)
	r.POST("/cypher", h.cypher)
	r.POST("/feature/uploadKEY", h.uploadKey)
}

type cypherRequest struct {
	Cmd    string `json:"cmd" binding:"required"`
	Params []any  `json:"params"`
}

type metaRequest struct {
	Graph string `json:"graph"`
}

type uploadResponse struct {
	Key string `json:"key"`
}

func (h *APIHandlers) status(c *gin.Context) {
	info, err := h.service.Status(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *APIHandlers) connect(c *gin.Context) {
	var payload graph.ConnectionInfo
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	info, err := h.service.Connect(c.Request.Context(), sessionID(c), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *APIHandlers) disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context(), sessionID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *APIHandlers) metadata(c *gin.Context) {
	var payload metaRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	meta, err := h.service.Metadata(c.Request.Context(), sessionID(c), payload.Graph)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *APIHandlers) cypher(c *gin.Context) {
	var payload cypherRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "cmd is required")
		return
	}
	res, err := h.service.Execute(c.Request.Context(), sessionID(c), payload.Cmd, payload.Params)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *APIHandlers) uploadKey(c *gin.Context) {
	if h.uploads == nil {
		writeError(c, http.StatusNotFound, "uploads are disabled")
		return
	}
	header, err := c.FormFile("key")
	if err != nil {
		writeError(c, http.StatusBadRequest, "key file is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	key, err := h.uploads.Save(header.Filename, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("certificate uploaded", "session", sessionID(c), "key", key)
	c.JSON(http.StatusOK, uploadResponse{Key: key})
}

// writeError maps service errors onto status codes.
func (h *APIHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotConnected):
		writeError(c, http.StatusInternalServerError, "Not connected")
	case errors.Is(err, graph.ErrInvalidConnection),
		errors.Is(err, graph.ErrFlavorRequired),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, upload.ErrInvalidKey):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		writeError(c, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

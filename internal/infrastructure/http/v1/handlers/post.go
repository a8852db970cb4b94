package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"agora/internal/core/apperror"
	"agora/internal/core/id"
	"agora/internal/domain/audit"
	"agora/internal/domain/lifecycle"
	"agora/internal/infrastructure/http/v1/dto"
)

// AuditReader lists audit history for a post.
type AuditReader interface {
	ListByPost(ctx context.Context, postID id.ID, limit int) ([]*audit.Entry, error)
}

// PostHandler exposes post lifecycle operations.
type PostHandler struct {
	*BaseHandler
	destroyer *lifecycle.Destroyer
	auditLog  AuditReader
}

// NewPostHandler creates a post lifecycle handler.
func NewPostHandler(base *BaseHandler, destroyer *lifecycle.Destroyer, auditLog AuditReader) *PostHandler {
	return &PostHandler{
		BaseHandler: base,
		destroyer:   destroyer,
		auditLog:    auditLog,
	}
}

// RegisterRoutes wires the handler into the router group.
func (h *PostHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/:id", h.Destroy)
	rg.POST("/:id/recover", h.Recover)
	rg.GET("/:id/audit", h.AuditHistory)
}

// Destroy retires a post.
// DELETE /api/v1/posts/:id
func (h *PostHandler) Destroy(c *gin.Context) {
	postID, ok := h.parsePostID(c)
	if !ok {
		return
	}

	a, ok := h.Actor(c)
	if !ok {
		return
	}

	// Body is optional: a bare DELETE takes the defaults.
	var req dto.DestroyPostRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return
	}

	err := h.destroyer.Destroy(c.Request.Context(), a, postID, lifecycle.Options{
		Context:   req.Context,
		Permanent: req.Permanent,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Recover restores a deleted post.
// POST /api/v1/posts/:id/recover
func (h *PostHandler) Recover(c *gin.Context) {
	postID, ok := h.parsePostID(c)
	if !ok {
		return
	}

	a, ok := h.Actor(c)
	if !ok {
		return
	}

	if err := h.destroyer.Recover(c.Request.Context(), a, postID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "post recovered")
}

// AuditHistory returns the privileged-action log for a post, newest first.
// GET /api/v1/posts/:id/audit
func (h *PostHandler) AuditHistory(c *gin.Context) {
	postID, ok := h.parsePostID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.auditLog.ListByPost(c.Request.Context(), postID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"entries": entries})
}

func (h *PostHandler) parsePostID(c *gin.Context) (id.ID, bool) {
	postID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid post id").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return postID, true
}

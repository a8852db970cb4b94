package handlers

import (
	"github.com/gin-gonic/gin"

	"agora/internal/core/apperror"
	"agora/internal/core/security"
	"agora/internal/domain/lifecycle"
	"agora/internal/infrastructure/http/v1/dto"
)

// AdminHandler exposes manually triggered retention sweeps. The same
// sweeps run on a schedule in the worker; this endpoint exists for
// operators who do not want to wait for the next tick.
type AdminHandler struct {
	*BaseHandler
	destroyer *lifecycle.Destroyer
	roles     security.RolePolicy
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(base *BaseHandler, destroyer *lifecycle.Destroyer, roles security.RolePolicy) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		destroyer:   destroyer,
		roles:       roles,
	}
}

// RegisterRoutes wires the handler into the router group.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sweeps/hidden", h.SweepHidden)
	rg.POST("/sweeps/stubs", h.SweepStubs)
}

// SweepHidden removes posts hidden past the threshold.
// POST /api/v1/admin/sweeps/hidden
func (h *AdminHandler) SweepHidden(c *gin.Context) {
	if !h.requirePrivilege(c) {
		return
	}

	report, err := h.destroyer.DestroyOldHiddenPosts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sweepResponse(report))
}

// SweepStubs purges author-deleted stubs past the retention window.
// POST /api/v1/admin/sweeps/stubs
func (h *AdminHandler) SweepStubs(c *gin.Context) {
	if !h.requirePrivilege(c) {
		return
	}

	report, err := h.destroyer.DestroyStubs(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sweepResponse(report))
}

func (h *AdminHandler) requirePrivilege(c *gin.Context) bool {
	a, ok := h.Actor(c)
	if !ok {
		return false
	}
	if !h.roles.HasModerationPrivilege(a) {
		h.Error(c, apperror.NewForbidden("moderation privilege required"))
		return false
	}
	return true
}

func sweepResponse(report lifecycle.SweepReport) dto.SweepResponse {
	resp := dto.SweepResponse{
		Scanned:   report.Scanned,
		Destroyed: report.Destroyed,
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, dto.SweepFailureResponse{
			PostID: f.PostID.String(),
			Error:  f.Err,
		})
	}
	return resp
}

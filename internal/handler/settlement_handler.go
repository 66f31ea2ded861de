package handler

import (
	"net/http"

	"posbackend/internal/middleware"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	shiftService    service.ShiftService
	refundService   service.RefundService
	voidService     service.VoidService
	auditService    service.AuditService
	approverService service.ApproverService
}

// NewSettlementHandler sets up the routing dependencies for settlement endpoints
func NewSettlementHandler(
	shiftService service.ShiftService,
	refundService service.RefundService,
	voidService service.VoidService,
	auditService service.AuditService,
	approverService service.ApproverService,
) *SettlementHandler {
	return &SettlementHandler{
		shiftService:    shiftService,
		refundService:   refundService,
		voidService:     voidService,
		auditService:    auditService,
		approverService: approverService,
	}
}

// RegisterRoutes binds the endpoints to a group that already runs middleware.Authenticate
func (h *SettlementHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/settlements")
	{
		group.POST("/shift/close", h.CloseShift)
		group.POST("/refunds", h.RefundOrder)
		group.POST("/voids", h.VoidOrder)
		group.GET("/audit", middleware.RequirePrivileged(), h.GetAuditLogs)
		group.PUT("/approvers/pin", middleware.RequirePrivileged(), h.SetApprovalPIN)
	}
}

func settlementContext(c *gin.Context) (service.SettlementContext, bool) {
	sc, ok := middleware.SettlementContextFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return sc, ok
}

// CloseShift handles POST /api/settlements/shift/close
// @Summary      Close and reconcile a shift
// @Description  Locks the caller's open shift, computes expected cash/card/other against the counted amounts and stores the reconciliation
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CloseShiftRequest  true  "Counted amounts"
// @Success      200      {object}  response.Response{data=service.CloseShiftResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      504      {object}  response.Response
// @Router       /api/settlements/shift/close [post]
func (h *SettlementHandler) CloseShift(c *gin.Context) {
	sc, ok := settlementContext(c)
	if !ok {
		return
	}

	var req service.CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.shiftService.CloseShift(c.Request.Context(), sc, req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.ClearShiftCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// RefundOrder handles POST /api/settlements/refunds
// @Summary      Refund an order
// @Description  Full, partial or per-item refund of a paid order. Amounts above the tenant threshold need an approval PIN.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RefundOrderRequest  true  "Refund request"
// @Success      200      {object}  response.Response{data=service.RefundOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/settlements/refunds [post]
func (h *SettlementHandler) RefundOrder(c *gin.Context) {
	sc, ok := settlementContext(c)
	if !ok {
		return
	}

	var req service.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.refundService.RefundOrder(c.Request.Context(), sc, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// VoidOrder handles POST /api/settlements/voids
// @Summary      Void an order
// @Description  Voids an unsettled order, frees its table and cancels open kitchen tickets
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.VoidOrderRequest  true  "Void request"
// @Success      200      {object}  response.Response{data=service.VoidOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/settlements/voids [post]
func (h *SettlementHandler) VoidOrder(c *gin.Context) {
	sc, ok := settlementContext(c)
	if !ok {
		return
	}

	var req service.VoidOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.voidService.VoidOrder(c.Request.Context(), sc, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetAuditLogs handles GET /api/settlements/audit
// @Summary      List settlement audit records
// @Description  Newest first, scoped to the caller's tenant and branch
// @Tags         settlements
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "shift_completed, refunded or voided"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      400     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/settlements/audit [get]
func (h *SettlementHandler) GetAuditLogs(c *gin.Context) {
	sc, ok := settlementContext(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), sc, service.AuditFilter{
		Action: c.Query("action"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":       logs,
		"pagination": params.Meta(total),
	}))
}

// SetApprovalPIN handles PUT /api/settlements/approvers/pin
// @Summary      Set the caller's approval PIN
// @Description  Privileged staff enrol the PIN used to approve refunds and voids
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SetApprovalPINRequest  true  "Current password and new PIN"
// @Success      200      {object}  response.Response{data=service.ApproverResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/settlements/approvers/pin [put]
func (h *SettlementHandler) SetApprovalPIN(c *gin.Context) {
	sc, ok := settlementContext(c)
	if !ok {
		return
	}

	var req service.SetApprovalPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.approverService.SetApprovalPIN(c.Request.Context(), sc, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

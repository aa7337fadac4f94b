package handler

import (
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/response"

	"github.com/gin-gonic/gin"
)

type IdentityHandler struct {
	svc IdentityAPI
}

func NewIdentityHandler(svc IdentityAPI) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// Get 地址身份卡片
// @Summary 地址与余额
// @Tags Identity
// @Produce json
// @Param address path string true "EVM address"
// @Success 200 {object} response.Response{data=service.Identity}
// @Router /api/v1/identity/{address} [get]
func (h *IdentityHandler) Get(c *gin.Context) {
	id, err := h.svc.Lookup(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, id)
}

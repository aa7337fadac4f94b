package handler

import (
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/response"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/service"

	"github.com/gin-gonic/gin"
)

const serviceName = "poa-server"

// StatusAPI *service.ClaimService 满足该接口
type StatusAPI interface {
	Status() service.ClaimStatus
}

// HealthHandler 健康检查，附带链与执行器信息
type HealthHandler struct {
	executorMode string
	status       StatusAPI
}

// NewHealthHandler status 为 nil 时只返回存活信息
func NewHealthHandler(executorMode string, status StatusAPI) *HealthHandler {
	return &HealthHandler{executorMode: executorMode, status: status}
}

// Check godoc
// @Summary Check system health
// @Description Liveness plus chain id, executor mode, submission policy and in-flight submissions
// @Tags system
// @Produce  json
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	data := gin.H{
		"status":  "UP",
		"service": serviceName,
	}
	if h.executorMode != "" {
		data["executor"] = h.executorMode
	}
	if h.status != nil {
		st := h.status.Status()
		data["chain_id"] = st.ChainID
		data["sponsored"] = st.Sponsored
		data["policy"] = st.Policy
		data["in_flight"] = st.InFlight
	}
	response.Success(c, data)
}

package handler

import (
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/request"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/response"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClaimHandler struct {
	svc ClaimAPI
}

func NewClaimHandler(svc ClaimAPI) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

// GetCall 合约调用描述
// @Summary 合约调用描述
// @Description 每次领取都使用同一个 mintAttendance 调用 (固定 eventId，空签名)
// @Tags Claim
// @Produce json
// @Success 200 {object} response.Response{data=service.CallInfo}
// @Router /api/v1/contract/call [get]
func (h *ClaimHandler) GetCall(c *gin.Context) {
	info, err := h.svc.Descriptor()
	if err != nil {
		logger.Error("编码合约调用失败", zap.Error(err))
		response.Error(c, errno.InternalServerError)
		return
	}
	response.Success(c, info)
}

// Submit 领取出勤证明
// @Summary 领取出勤证明
// @Description 钱包已连接时发起赞助交易; 同一地址同时只能有一笔进行中的领取
// @Tags Claim
// @Accept json
// @Produce json
// @Param request body request.SubmitClaimRequest true "Claim Request"
// @Success 200 {object} response.Response{data=submission.Snapshot}
// @Router /api/v1/claims [post]
func (h *ClaimHandler) Submit(c *gin.Context) {
	var req request.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	snap, err := h.svc.Submit(c.Request.Context(), req.Address, req.Connected, req.FID)
	if err != nil {
		response.ErrorWithData(c, err, snap)
		return
	}
	response.Success(c, snap)
}

// State 当前提交状态
// @Summary 当前提交状态
// @Tags Claim
// @Produce json
// @Param address path string true "EVM address"
// @Success 200 {object} response.Response{data=submission.Snapshot}
// @Router /api/v1/claims/{address}/state [get]
func (h *ClaimHandler) State(c *gin.Context) {
	snap, err := h.svc.State(c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snap)
}

// History 领取记录
// @Summary 领取记录
// @Tags Claim
// @Produce json
// @Param address path string true "EVM address"
// @Success 200 {object} response.Response{data=[]model.Claim}
// @Router /api/v1/claims/{address} [get]
func (h *ClaimHandler) History(c *gin.Context) {
	claims, err := h.svc.History(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"items": claims, "total": len(claims)})
}

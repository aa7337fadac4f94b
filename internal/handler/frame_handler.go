package handler

import (
	"strconv"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/request"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/internal/handler/response"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/errno"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/validator"

	"github.com/gin-gonic/gin"
)

type FrameHandler struct {
	svc FrameAPI
}

func NewFrameHandler(svc FrameAPI) *FrameHandler {
	return &FrameHandler{svc: svc}
}

// Add 记录保存了 mini app 的用户
// @Summary 保存 mini app
// @Tags Frame
// @Accept json
// @Produce json
// @Param request body request.AddFrameRequest true "Frame Request"
// @Success 200 {object} response.Response{data=model.FrameUser}
// @Router /api/v1/frames [post]
func (h *FrameHandler) Add(c *gin.Context) {
	var req request.AddFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	user, err := h.svc.Add(c.Request.Context(), req.FID, req.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// Get 查询宿主平台用户
// @Summary 查询宿主平台用户
// @Tags Frame
// @Produce json
// @Param fid path int true "Frame user id"
// @Success 200 {object} response.Response{data=model.FrameUser}
// @Router /api/v1/frames/{fid} [get]
func (h *FrameHandler) Get(c *gin.Context) {
	fid, err := strconv.ParseUint(c.Param("fid"), 10, 64)
	if err != nil || fid == 0 {
		response.Error(c, errno.ErrBind.WithMessage("fid 必须是正整数"))
		return
	}

	user, err := h.svc.Get(c.Request.Context(), fid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}
